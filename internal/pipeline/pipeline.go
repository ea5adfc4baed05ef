// Package pipeline wires the full validation flow: reference extraction,
// required-field filtering, multi-source validation, and the optional
// browser-path escalation, producing one merged report.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dkazmin/normcheck/internal/browser"
	"github.com/dkazmin/normcheck/internal/cache"
	"github.com/dkazmin/normcheck/internal/escalate"
	"github.com/dkazmin/normcheck/internal/refs"
	"github.com/dkazmin/normcheck/internal/validator"
)

// Config holds configuration for one pipeline run.
type Config struct {
	OutputFormat string
	Verbose      bool

	// Escalate enables the browser path when the Unknown count crosses
	// the threshold.
	Escalate bool

	// CacheDir is the base directory for the result caches; empty
	// disables caching for the browser path.
	CacheDir string
	CacheTTL time.Duration

	Extraction ExtractionConfig

	Validator  validator.Config
	Browser    browser.Config
	Escalation escalate.Config
}

// ExtractionConfig carries the extraction-stage knobs surfaced on the CLI.
type ExtractionConfig struct {
	LLMAPIKey string
	LLMModel  string
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		OutputFormat: "human",
		Escalate:     true,
		CacheTTL:     cache.DefaultTTL,
		Validator:    validator.DefaultConfig(),
		Browser:      browser.DefaultConfig(),
		Escalation:   escalate.DefaultConfig(),
	}
}

// ValidatedReference pairs an extracted reference with its merged verdict.
type ValidatedReference struct {
	Reference refs.Reference     `json:"reference"`
	Verdict   *validator.Verdict `json:"verdict,omitempty"`
}

// Report is the outcome of one pipeline run.
type Report struct {
	References   []ValidatedReference `json:"references"`
	Skipped      []refs.Reference     `json:"skipped,omitempty"`
	Extraction   refs.ExtractionStats `json:"extraction"`
	UnknownCount int                  `json:"unknown_count"`
	Escalated    bool                 `json:"escalated"`
	ProcessTime  time.Duration        `json:"process_time"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// Pipeline runs text through extraction, validation, and escalation.
type Pipeline struct {
	config    Config
	extractor *refs.Extractor
	validator *validator.Validator
}

// New creates a pipeline.
func New(config Config) *Pipeline {
	extractOpts := refs.DefaultExtractionOptions()
	if config.Extraction.LLMAPIKey != "" {
		extractOpts.UseLLMFallback = true
		extractOpts.LLMAPIKey = config.Extraction.LLMAPIKey
		if config.Extraction.LLMModel != "" {
			extractOpts.LLMModel = config.Extraction.LLMModel
		}
	}

	return &Pipeline{
		config:    config,
		extractor: refs.New(extractOpts),
		validator: validator.New(config.Validator),
	}
}

// Run executes the full flow over the input text.
func (p *Pipeline) Run(ctx context.Context, text string) (*Report, error) {
	start := time.Now()

	extraction, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract references: %w", err)
	}

	report := &Report{
		Extraction: extraction.Summary,
		Warnings:   extraction.Warnings,
	}

	valid, skipped := refs.FilterValidatable(extraction.References)
	report.Skipped = skipped

	if p.config.Verbose {
		fmt.Fprintf(os.Stderr, "extracted %d references (%d skipped, missing required fields)\n",
			len(valid), len(skipped))
	}

	if len(valid) == 0 {
		report.ProcessTime = time.Since(start)
		return report, nil
	}

	queries := make([]string, len(valid))
	for i, ref := range valid {
		queries[i] = ref.Raw
	}

	var progress func(done, total int)
	if p.config.Verbose {
		progress = func(done, total int) {
			fmt.Fprintf(os.Stderr, "validated %d/%d\n", done, total)
		}
	}

	verdicts := p.validator.ValidateBatch(ctx, queries, progress)

	if p.config.Escalate {
		report.Escalated = p.runEscalation(ctx, valid, verdicts, report)
	}

	for _, ref := range valid {
		report.References = append(report.References, ValidatedReference{
			Reference: ref,
			Verdict:   verdicts[ref.Raw],
		})
	}

	report.UnknownCount = validator.UnknownCount(verdicts)
	report.ProcessTime = time.Since(start)

	return report, nil
}

// runEscalation opens the browser-path cache, builds the orchestrator, and
// runs the escalation pass when the batch qualifies.
func (p *Pipeline) runEscalation(ctx context.Context, valid []refs.Reference, verdicts map[string]*validator.Verdict, report *Report) bool {
	var store *cache.Store
	if p.config.CacheDir != "" {
		var err error
		// The same directory backs the cache maintenance commands.
		store, err = cache.Open(p.config.CacheDir, p.config.CacheTTL)
		if err != nil {
			report.Warnings = append(report.Warnings, "browser cache unavailable: "+err.Error())
		} else {
			defer store.Close()
		}
	}

	checker := browser.NewChecker(p.config.Browser, store)

	escalation := p.config.Escalation
	if p.config.Verbose {
		escalation.Progress = func(update browser.ProgressUpdate) {
			if update.Total == 0 {
				return
			}
			fmt.Fprintf(os.Stderr, "browser lookup %d/%d: %s\n",
				update.Completed, update.Total, update.Query)
		}
	}

	orchestrator := escalate.New(escalation, checker)

	if !orchestrator.ShouldEscalate(verdicts) {
		return false
	}

	if p.config.Verbose {
		fmt.Fprintf(os.Stderr, "escalating %d unknown references to the browser path\n",
			validator.UnknownCount(verdicts))
	}

	orchestrator.Run(ctx, valid, verdicts)

	return true
}
