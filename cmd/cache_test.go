package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dkazmin/normcheck/internal/cache"
)

func TestRenderStats(t *testing.T) {
	stats := &cache.Stats{
		TotalRecords: 42,
		SizeBytes:    1024,
		Recent24h:    7,
		TTLHours:     168,
		PopularTop: []cache.PopularQuery{
			{Query: "ГОСТ 2.105-95", AccessCount: 12},
		},
	}

	var buf bytes.Buffer
	renderStats(&buf, stats)
	out := buf.String()

	// TTLHours is a float; it must render as a plain hour count.
	if !strings.Contains(out, "168 hours") {
		t.Errorf("output missing TTL line:\n%s", out)
	}
	if strings.Contains(out, "%!") {
		t.Errorf("output contains a formatting error:\n%s", out)
	}

	for _, want := range []string{"42", "1024 bytes", "7 new entries", "ГОСТ 2.105-95"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatsNoPopular(t *testing.T) {
	var buf bytes.Buffer
	renderStats(&buf, &cache.Stats{TTLHours: 24})

	if strings.Contains(buf.String(), "most requested") {
		t.Errorf("popular section rendered for empty list:\n%s", buf.String())
	}
}
