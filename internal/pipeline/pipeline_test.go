package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkazmin/normcheck/internal/cache"
	"github.com/dkazmin/normcheck/internal/refs"
	"github.com/dkazmin/normcheck/internal/validator"
)

func TestPipelineRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "статус документа: действует")
	}))
	t.Cleanup(srv.Close)

	config := DefaultConfig()
	config.Escalate = false
	config.Validator = validator.Config{
		Sources:           []validator.Source{{Name: "test", Template: srv.URL + "/?q={query}"}},
		RequestTimeout:    2 * time.Second,
		BatchTimeout:      5 * time.Second,
		SecondPassTimeout: 100 * time.Millisecond,
		MaxConnections:    2,
		MaxKeepalive:      1,
		Workers:           2,
		UserAgent:         "test-agent",
		ExpiredKeywords:   validator.ExpiredKeywords(),
		ActiveKeywords:    validator.ActiveKeywords(),
	}

	text := `Действует Федеральный закон от 27.07.2006 № 152-ФЗ «О персональных данных».`

	report, err := New(config).Run(context.Background(), text)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.References) != 1 {
		t.Fatalf("references = %d, want 1: %+v", len(report.References), report.References)
	}

	vr := report.References[0]
	if vr.Reference.Number != "152-ФЗ" {
		t.Errorf("number = %q, want 152-ФЗ", vr.Reference.Number)
	}
	if vr.Verdict == nil || vr.Verdict.Status != validator.StatusActive {
		t.Errorf("verdict = %+v, want active", vr.Verdict)
	}
	if vr.Verdict != nil && vr.Verdict.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0 (single unanimous source)", vr.Verdict.Confidence)
	}

	if report.UnknownCount != 0 {
		t.Errorf("unknown count = %d, want 0", report.UnknownCount)
	}
	if report.Escalated {
		t.Error("escalation ran despite being disabled")
	}
}

func TestPipelineRunNoReferences(t *testing.T) {
	config := DefaultConfig()
	config.Escalate = false
	config.Validator.Sources = nil

	report, err := New(config).Run(context.Background(), "обычный текст без единой ссылки")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.References) != 0 {
		t.Errorf("references = %d, want 0", len(report.References))
	}
}

func TestDescribeReference(t *testing.T) {
	tests := []struct {
		name string
		ref  refs.Reference
		want string
	}{
		{
			name: "all fields",
			ref:  refs.Reference{Type: "Приказ", Number: "5", Date: "01.01.2020", Title: "Об утверждении"},
			want: "Приказ № 5 от 01.01.2020 «Об утверждении»",
		},
		{
			name: "type and number only",
			ref:  refs.Reference{Type: "ГОСТ", Number: "2.105-95"},
			want: "ГОСТ № 2.105-95",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeReference(tt.ref); got != tt.want {
				t.Errorf("describeReference() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPipelineCacheLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "действует")
	}))
	t.Cleanup(srv.Close)

	cacheDir := filepath.Join(t.TempDir(), "cache")

	config := DefaultConfig()
	config.Escalate = true
	config.CacheDir = cacheDir
	config.Validator = validator.Config{
		Sources:           []validator.Source{{Name: "test", Template: srv.URL + "/?q={query}"}},
		RequestTimeout:    2 * time.Second,
		BatchTimeout:      5 * time.Second,
		SecondPassTimeout: 100 * time.Millisecond,
		MaxConnections:    2,
		MaxKeepalive:      1,
		Workers:           2,
		UserAgent:         "test-agent",
		ExpiredKeywords:   validator.ExpiredKeywords(),
		ActiveKeywords:    validator.ActiveKeywords(),
	}

	text := `Действует Федеральный закон от 27.07.2006 № 152-ФЗ «О персональных данных».`

	if _, err := New(config).Run(context.Background(), text); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The escalation path and the cache maintenance commands must share one
	// store directory.
	store, err := cache.Open(cacheDir, cache.DefaultTTL)
	if err != nil {
		t.Fatalf("configured cache dir is not a usable store: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(cacheDir + "-browser"); !os.IsNotExist(err) {
		t.Errorf("a second store was created beside the configured directory")
	}
}
