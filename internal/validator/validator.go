// Package validator determines whether a referenced normative document is
// still in force by fanning a query out to a registry of external sources,
// classifying each response, and aggregating the votes into one
// confidence-scored verdict.
package validator

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Validator issues concurrent source lookups and reconciles their answers.
type Validator struct {
	config Config
	client *http.Client
}

// New creates a validator with a tuned HTTP client. Connection reuse limits
// follow the configured keep-alive and connection caps.
func New(config Config) *Validator {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxConnections * 2,
		MaxIdleConnsPerHost: config.MaxKeepalive,
		MaxConnsPerHost:     config.MaxConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Validator{
		config: config,
		client: &http.Client{Transport: transport},
	}
}

// Validate queries every registered source (up to the configured cap) for
// the given query and aggregates the classified responses. Individual source
// failures and batch timeouts degrade to "unknown" votes; the call itself
// never fails.
func (v *Validator) Validate(ctx context.Context, query string) *Verdict {
	start := time.Now()

	encoded := url.QueryEscape(query)

	sources := v.config.Sources
	if v.config.MaxSources > 0 && len(sources) > v.config.MaxSources {
		sources = sources[:v.config.MaxSources]
	}

	batchCtx, cancel := context.WithTimeout(ctx, v.config.BatchTimeout)
	defer cancel()

	urls := make([]string, len(sources))
	bodies := make([]string, len(sources))

	g, gctx := errgroup.WithContext(batchCtx)
	g.SetLimit(v.config.MaxConnections)

	for i, src := range sources {
		i := i
		urls[i] = strings.Replace(src.Template, "{query}", encoded, 1)
		g.Go(func() error {
			bodies[i] = v.fetch(gctx, urls[i], v.config.RequestTimeout)
			return nil
		})
	}
	_ = g.Wait()

	verdict := &Verdict{
		SourceStatuses: make(map[string]Status, len(sources)),
	}

	counts := make(map[Status]int)
	for i, src := range sources {
		st := v.classify(bodies[i])
		verdict.SourceStatuses[src.Name] = st
		counts[st]++
	}

	verdict.Status, verdict.Confidence = aggregate(counts)

	if verdict.Status == StatusUnknown {
		v.secondPass(ctx, encoded, verdict)
	}

	verdict.Elapsed = time.Since(start)

	return verdict
}

// ValidateBatch validates queries concurrently with a bounded worker count.
// The result map is keyed by the original query string. The optional
// progress callback receives completion counts as verdicts land.
func (v *Validator) ValidateBatch(ctx context.Context, queries []string, progress func(done, total int)) map[string]*Verdict {
	results := make(map[string]*Verdict, len(queries))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.config.Workers)

	for _, q := range queries {
		q := q
		g.Go(func() error {
			verdict := v.Validate(gctx, q)

			mu.Lock()
			results[q] = verdict
			done++
			if progress != nil {
				progress(done, len(queries))
			}
			mu.Unlock()

			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetch retrieves one source URL and returns the lowercased response body.
// Any failure (timeout, non-2xx status, network error) yields an empty
// string, which classifies as an "unknown" vote.
func (v *Validator) fetch(ctx context.Context, rawURL string, timeout time.Duration) string {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", v.config.UserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	return strings.ToLower(string(body))
}

// classify scans a lowercased response body for the two keyword sets. A body
// matching only expiry keywords is expired, only active keywords is active;
// both, neither, or an empty body is unknown. Expiry phrases are stripped
// before the active scan so that "не действует" does not also register the
// embedded active marker "действует" and void its own vote.
func (v *Validator) classify(body string) Status {
	if body == "" {
		return StatusUnknown
	}

	expired := containsAny(body, v.config.ExpiredKeywords)

	scrubbed := body
	for _, k := range v.config.ExpiredKeywords {
		scrubbed = strings.ReplaceAll(scrubbed, k, "")
	}
	active := containsAny(scrubbed, v.config.ActiveKeywords)

	switch {
	case expired && !active:
		return StatusExpired
	case active && !expired:
		return StatusActive
	default:
		return StatusUnknown
	}
}

// aggregate reduces per-source votes to a final status and confidence.
// Expiry wins ties with at least one expired vote; confidence is the winning
// vote fraction rounded to two decimals, and Unknown always scores 0.0.
func aggregate(counts map[Status]int) (Status, float64) {
	total := counts[StatusExpired] + counts[StatusActive] + counts[StatusUnknown]

	switch {
	case total == 0:
		return StatusUnknown, 0.0
	case counts[StatusExpired] >= counts[StatusActive] && counts[StatusExpired] > 0:
		return StatusExpired, round2(float64(counts[StatusExpired]) / float64(total))
	case counts[StatusActive] > counts[StatusExpired]:
		return StatusActive, round2(float64(counts[StatusActive]) / float64(total))
	default:
		return StatusUnknown, 0.0
	}
}

// secondPass queries the dedicated fallback source with a longer timeout
// when the aggregate is inconclusive. An unambiguous answer overrides the
// verdict with full confidence.
func (v *Validator) secondPass(ctx context.Context, encodedQuery string, verdict *Verdict) {
	rawURL := strings.Replace(secondPassTemplate, "{query}", encodedQuery, 1)

	body := v.fetch(ctx, rawURL, v.config.SecondPassTimeout)

	switch st := v.classify(body); st {
	case StatusExpired, StatusActive:
		verdict.Status = st
		verdict.Confidence = 1.0
		verdict.SourceStatuses[secondPassName] = st
	}
}

// UnknownCount returns how many verdicts in a batch remain Unknown.
func UnknownCount(verdicts map[string]*Verdict) int {
	n := 0
	for _, verdict := range verdicts {
		if verdict != nil && verdict.Status == StatusUnknown {
			n++
		}
	}
	return n
}

func containsAny(body string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(body, k) {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
