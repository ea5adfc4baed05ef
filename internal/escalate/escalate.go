// Package escalate decides when a validation batch warrants the heavyweight
// browser-driven lookup path and merges its results back into the batch
// verdicts.
package escalate

import (
	"context"
	"fmt"

	"github.com/dkazmin/normcheck/internal/browser"
	"github.com/dkazmin/normcheck/internal/refs"
	"github.com/dkazmin/normcheck/internal/validator"
)

// Checker is the browser lookup capability the orchestrator drives.
type Checker interface {
	Check(ref refs.Reference) browser.Result
}

// Config tunes the escalation decision and result merging.
type Config struct {
	// UnknownThreshold is the Unknown-verdict count above which a batch
	// escalates.
	UnknownThreshold int `json:"unknown_threshold"`
	// Confidence is assigned to every verdict the browser path resolves.
	// It is a fixed heuristic reflecting the path's cost and specificity,
	// not derived from the page evidence.
	Confidence float64 `json:"confidence"`
	Workers    int     `json:"workers"`

	// Progress, when set, receives the worker pool's progress stream. The
	// callback runs on a dedicated goroutine; it must not block
	// indefinitely.
	Progress func(update browser.ProgressUpdate) `json:"-"`
}

// DefaultConfig returns the standard escalation configuration.
func DefaultConfig() Config {
	return Config{
		UnknownThreshold: 10,
		Confidence:       0.8,
		Workers:          5,
	}
}

// Orchestrator runs the escalation pass over a validated batch.
type Orchestrator struct {
	config  Config
	checker Checker
}

// New creates an orchestrator driving the given checker.
func New(config Config, checker Checker) *Orchestrator {
	return &Orchestrator{config: config, checker: checker}
}

// ShouldEscalate reports whether the batch's Unknown count exceeds the
// threshold.
func (o *Orchestrator) ShouldEscalate(verdicts map[string]*validator.Verdict) bool {
	return validator.UnknownCount(verdicts) > o.config.UnknownThreshold
}

// Run forwards only the Unknown-status references to the browser worker
// pool and merges the outcomes. A verdict is updated only when the browser
// resolves it to Active or Expired; it is never overwritten back to
// Unknown. Updated verdicts carry the fixed escalation confidence and
// source attribution. Verdicts are keyed by the reference's raw span.
func (o *Orchestrator) Run(ctx context.Context, references []refs.Reference, verdicts map[string]*validator.Verdict) map[string]*validator.Verdict {
	var unknown []refs.Reference
	for _, ref := range references {
		verdict, ok := verdicts[ref.Raw]
		if ok && verdict != nil && verdict.Status == validator.StatusUnknown {
			unknown = append(unknown, ref)
		}
	}
	if len(unknown) == 0 {
		return verdicts
	}

	pool := browser.NewWorkerPool(o.checker, o.config.Workers)
	pool.Start()

	go func() {
		for i, ref := range unknown {
			if ctx.Err() != nil {
				break
			}
			pool.Submit(browser.LookupTask{
				ID:        fmt.Sprintf("lookup-%d", i),
				Reference: ref,
			})
		}
		pool.Wait()
	}()

	var progressDone chan struct{}
	if o.config.Progress != nil {
		progressDone = make(chan struct{})
		go func() {
			defer close(progressDone)
			for update := range pool.Progress() {
				o.config.Progress(update)
			}
		}()
	}

	// Draining the results channel single-threaded makes the merge safe
	// without a lock.
	for lookup := range pool.Results() {
		status, ok := resolvedStatus(lookup.Result.Status)
		if !ok {
			continue
		}

		verdict := verdicts[lookup.Task.Reference.Raw]
		verdict.Status = status
		verdict.Confidence = o.config.Confidence
		verdict.Source = lookup.Result.Source
		if verdict.SourceStatuses == nil {
			verdict.SourceStatuses = make(map[string]validator.Status)
		}
		verdict.SourceStatuses[lookup.Result.Source] = status
	}

	if progressDone != nil {
		<-progressDone
	}

	return verdicts
}

// resolvedStatus maps a browser outcome to a verdict status, accepting only
// decisive results.
func resolvedStatus(s browser.Status) (validator.Status, bool) {
	switch s {
	case browser.StatusActive:
		return validator.StatusActive, true
	case browser.StatusExpired:
		return validator.StatusExpired, true
	default:
		return "", false
	}
}
