package escalate

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dkazmin/normcheck/internal/browser"
	"github.com/dkazmin/normcheck/internal/refs"
	"github.com/dkazmin/normcheck/internal/validator"
)

// fakeChecker resolves lookups from a canned table and records which
// references it was asked about.
type fakeChecker struct {
	mu      sync.Mutex
	results map[string]browser.Status
	asked   []string
}

func (f *fakeChecker) Check(ref refs.Reference) browser.Result {
	f.mu.Lock()
	f.asked = append(f.asked, ref.Raw)
	f.mu.Unlock()

	status, ok := f.results[ref.Raw]
	if !ok {
		status = browser.StatusNotFound
	}

	return browser.Result{
		Source: browser.SourceName,
		Status: status,
		Query:  ref.Raw,
	}
}

func TestShouldEscalate(t *testing.T) {
	orchestrator := New(DefaultConfig(), &fakeChecker{})

	verdicts := make(map[string]*validator.Verdict)
	for i := 0; i < 10; i++ {
		verdicts[fmt.Sprintf("q%d", i)] = &validator.Verdict{Status: validator.StatusUnknown}
	}

	if orchestrator.ShouldEscalate(verdicts) {
		t.Error("10 unknown verdicts must not escalate (threshold is exclusive)")
	}

	verdicts["q10"] = &validator.Verdict{Status: validator.StatusUnknown}
	if !orchestrator.ShouldEscalate(verdicts) {
		t.Error("11 unknown verdicts must escalate")
	}

	verdicts["q10"].Status = validator.StatusActive
	if orchestrator.ShouldEscalate(verdicts) {
		t.Error("resolved verdicts must not count toward the threshold")
	}
}

func TestRunMergesResolvedResults(t *testing.T) {
	checker := &fakeChecker{results: map[string]browser.Status{
		"раз": browser.StatusActive,
		"два": browser.StatusExpired,
		"три": browser.StatusNotFound,
	}}

	references := []refs.Reference{
		{Raw: "раз", Type: "ГОСТ", Number: "1-91"},
		{Raw: "два", Type: "ГОСТ", Number: "2-92"},
		{Raw: "три", Type: "ГОСТ", Number: "3-93"},
		{Raw: "четыре", Type: "ГОСТ", Number: "4-94"},
	}

	verdicts := map[string]*validator.Verdict{
		"раз":    {Status: validator.StatusUnknown},
		"два":    {Status: validator.StatusUnknown},
		"три":    {Status: validator.StatusUnknown},
		"четыре": {Status: validator.StatusActive, Confidence: 0.75},
	}

	config := DefaultConfig()
	var updates int
	config.Progress = func(update browser.ProgressUpdate) { updates++ }

	orchestrator := New(config, checker)
	orchestrator.Run(context.Background(), references, verdicts)

	if len(checker.asked) != 3 {
		t.Errorf("checker asked about %d references, want 3 (only unknown)", len(checker.asked))
	}

	// Two pool updates per lookup: pick-up and completion. Run drains the
	// stream before returning, so the count is settled here.
	if updates != 6 {
		t.Errorf("progress updates = %d, want 6", updates)
	}

	if v := verdicts["раз"]; v.Status != validator.StatusActive ||
		v.Confidence != config.Confidence || v.Source != browser.SourceName {
		t.Errorf("раз = %+v, want active with fixed confidence %v from %s",
			v, config.Confidence, browser.SourceName)
	}
	if got := verdicts["раз"].SourceStatuses[browser.SourceName]; got != validator.StatusActive {
		t.Errorf("раз source status = %s, want active", got)
	}

	if v := verdicts["два"]; v.Status != validator.StatusExpired {
		t.Errorf("два = %s, want expired", v.Status)
	}

	// Undecided browser outcomes never overwrite a verdict.
	if v := verdicts["три"]; v.Status != validator.StatusUnknown || v.Confidence != 0 {
		t.Errorf("три = %+v, want untouched unknown", v)
	}

	// Already-resolved verdicts are not re-checked or altered.
	if v := verdicts["четыре"]; v.Status != validator.StatusActive || v.Confidence != 0.75 {
		t.Errorf("четыре = %+v, want untouched", v)
	}
}

func TestRunWithNothingToDo(t *testing.T) {
	checker := &fakeChecker{}
	orchestrator := New(DefaultConfig(), checker)

	verdicts := map[string]*validator.Verdict{
		"а": {Status: validator.StatusActive},
	}

	orchestrator.Run(context.Background(), []refs.Reference{{Raw: "а"}}, verdicts)

	if len(checker.asked) != 0 {
		t.Errorf("checker asked about %d references, want 0", len(checker.asked))
	}
}
