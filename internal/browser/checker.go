// Package browser drives automated browser sessions against the ГАРАНТ
// legal-reference system for documents the fast validation path could not
// resolve. Each lookup runs a two-tier retry state machine: session-level
// failures rebuild the browser with a fresh rotating identity, while
// not-found outcomes retry the search in place.
package browser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/dkazmin/normcheck/internal/cache"
	"github.com/dkazmin/normcheck/internal/refs"
	"github.com/dkazmin/normcheck/internal/validator"
)

// Status is a terminal state of one browser lookup. It extends the
// validator's classification with the browser-specific terminal outcomes.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusUnknown  Status = "unknown"
	StatusNotFound Status = "not_found"
	StatusBlocked  Status = "blocked"
	StatusError    Status = "error"
)

// SourceName attributes browser-path results in merged verdicts.
const SourceName = "ГАРАНТ"

// Result is the terminal outcome of one browser lookup.
type Result struct {
	Source          string `json:"source"`
	Status          Status `json:"status"`
	URL             string `json:"url,omitempty"`
	Query           string `json:"query"`
	Error           string `json:"error,omitempty"`
	SessionAttempts int    `json:"session_attempts"`
	SearchAttempts  int    `json:"search_attempts"`
	FromCache       bool   `json:"from_cache,omitempty"`
}

// Config tunes the state machine's retry budgets, pauses, and pool.
type Config struct {
	SearchURL          string        `json:"search_url"`
	Headless           bool          `json:"headless"`
	MaxSessionRetries  int           `json:"max_session_retries"`
	MaxNotFoundRetries int           `json:"max_not_found_retries"`
	SessionRetryPause  time.Duration `json:"session_retry_pause"`
	NotFoundRetryPause time.Duration `json:"not_found_retry_pause"`
	ResultWait         time.Duration `json:"result_wait"`
	SettlePause        time.Duration `json:"settle_pause"`
	RotateEvery        int           `json:"rotate_every"`
	RotateSkip         int           `json:"rotate_skip"`
	Workers            int           `json:"workers"`
	ProfileBaseDir     string        `json:"profile_base_dir"`
}

// DefaultConfig returns the standard browser checker configuration.
func DefaultConfig() Config {
	return Config{
		SearchURL:          "https://ivo.garant.ru/#/basesearch/%s/all:0",
		Headless:           true,
		MaxSessionRetries:  3,
		MaxNotFoundRetries: 2,
		SessionRetryPause:  3 * time.Second,
		NotFoundRetryPause: 2 * time.Second,
		ResultWait:         15 * time.Second,
		SettlePause:        2 * time.Second,
		RotateEvery:        2,
		RotateSkip:         10,
		Workers:            5,
	}
}

// primaryResultXPath locates the first result link on the search page.
const primaryResultXPath = `/html/body/div[1]/div[2]/div[2]/div[2]/div[2]/div/div/div/div[2]/div/div/div[2]/div/div/div[4]/div/div/ul[1]/li[1]/a`

// fallbackResultXPaths are tried in order when the primary strategy fails.
func fallbackResultXPaths() []string {
	return []string{
		`//a[contains(@class, "search-result")]`,
		`//div[contains(@class, "search-results")]//a[1]`,
		`//ul[contains(@class, "search-list")]//li[1]//a`,
		`//ul//li[1]//a`,
		`//a[contains(@href, "document")]`,
	}
}

// sessionErrorMarkers identify failures that require a full session rebuild
// rather than an in-session retry.
func sessionErrorMarkers() []string {
	return []string{
		"invalid session id",
		"session deleted",
		"chrome not reachable",
		"chrome failed to start",
		"connection refused",
		"webdriver exception",
		"no such session",
		"session not created",
		"chrome crashed",
		"websocket",
		"context canceled",
		"deadline exceeded",
	}
}

// blockIndicators flag anti-bot interception on the search page.
func blockIndicators() []string {
	return []string{
		"cloudflare",
		"access denied",
		"blocked",
		"captcha",
		"please verify",
		"bot detection",
		"security check",
	}
}

// revisionMarker captures the "current revision dated X" marker on a
// document page (matched against lowercased page source).
var revisionMarker = regexp.MustCompile(`актуальная ред\.\s*(\d{1,2}\.\d{1,2}\.\d{4})`)

// Checker runs browser lookups with identity rotation and result caching.
type Checker struct {
	config Config
	pool   *IdentityPool
	store  *cache.Store

	mu       sync.Mutex
	searches int
}

// NewChecker creates a checker. The store may be nil to disable caching.
func NewChecker(config Config, store *cache.Store) *Checker {
	return &Checker{
		config: config,
		pool:   NewIdentityPool(config.ProfileBaseDir),
		store:  store,
	}
}

// Pool exposes the identity pool, mainly for rotation-order tests.
func (c *Checker) Pool() *IdentityPool {
	return c.pool
}

// Check resolves one reference through the browser path. The cache is
// consulted before any network activity; every terminal outcome, including
// retry-budget exhaustion, is written back to the cache.
func (c *Checker) Check(ref refs.Reference) Result {
	query := FormatQuery(ref)

	if c.store != nil {
		var cached Result
		if c.store.GetInto(query, &cached) {
			cached.FromCache = true
			return cached
		}
	}

	result := c.run(ref, query)

	if c.store != nil {
		_ = c.store.Put(query, result)
	}

	return result
}

// run executes the two-tier retry state machine: the outer loop owns the
// session-failure budget (full teardown and rebuild with a fresh identity),
// the inner loop owns the not-found budget (retry in the same session).
func (c *Checker) run(ref refs.Reference, query string) Result {
	var lastErr error

	sessionAttempts := 0
	searchAttempts := 0

	for sessionAttempts < c.config.MaxSessionRetries {
		sessionAttempts++

		sess, err := c.newRotatedSession()
		if err != nil {
			lastErr = err
			if searchAttempts == 0 {
				searchAttempts = 1
			}
			time.Sleep(c.config.SessionRetryPause)
			continue
		}

		result, err := c.searchLoop(sess, ref, query, &searchAttempts)

		sess.close()
		c.recordCompletedSearch()

		if err == nil {
			result.Source = SourceName
			result.Query = query
			result.SessionAttempts = sessionAttempts
			result.SearchAttempts = searchAttempts
			return result
		}

		lastErr = err
		// Only session-level failures earn a rebuild; anything else is a
		// terminal error.
		if !isSessionError(err.Error()) {
			break
		}
		time.Sleep(c.config.SessionRetryPause)
	}

	errMsg := "session retry budget exhausted"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}

	return Result{
		Source:          SourceName,
		Status:          StatusError,
		Query:           query,
		Error:           errMsg,
		SessionAttempts: sessionAttempts,
		SearchAttempts:  searchAttempts,
	}
}

// searchLoop retries not-found outcomes within one session, pausing between
// attempts. Session-level failures abort the loop and surface to the
// rebuild path.
func (c *Checker) searchLoop(sess *session, ref refs.Reference, query string, searchAttempts *int) (Result, error) {
	for attempt := 1; attempt <= c.config.MaxNotFoundRetries+1; attempt++ {
		*searchAttempts = attempt

		result, err := c.performSearch(sess, ref, query)
		if err != nil {
			return Result{}, err
		}

		if result.Status == StatusNotFound && attempt <= c.config.MaxNotFoundRetries {
			sess.clearState()
			time.Sleep(c.config.NotFoundRetryPause)
			continue
		}

		return result, nil
	}

	return Result{Status: StatusNotFound}, nil
}

// performSearch runs one search attempt: navigate to the search endpoint,
// wait for a result link, resolve and follow it, then classify the document
// page.
func (c *Checker) performSearch(sess *session, ref refs.Reference, query string) (Result, error) {
	searchURL := fmt.Sprintf(c.config.SearchURL, url.PathEscape(query))

	if err := sess.navigate(searchURL, c.config.ResultWait); err != nil {
		return Result{}, fmt.Errorf("navigate search: %w", err)
	}
	time.Sleep(c.config.SettlePause)

	if html, err := sess.html(); err == nil && isBlocked(html) {
		return Result{Status: StatusBlocked, URL: searchURL}, nil
	}

	if !c.resolveResultLink(sess) {
		return Result{Status: StatusNotFound, URL: searchURL}, nil
	}
	time.Sleep(c.config.SettlePause)

	current, err := sess.currentURL()
	if err != nil {
		return Result{}, fmt.Errorf("read location: %w", err)
	}
	// Still on the search page means the link led nowhere.
	if strings.Contains(current, "basesearch") {
		return Result{Status: StatusNotFound, URL: current}, nil
	}

	html, err := sess.html()
	if err != nil {
		return Result{}, fmt.Errorf("read page source: %w", err)
	}

	return Result{
		Status: determineStatus(strings.ToLower(html), ref.Date),
		URL:    current,
	}, nil
}

// resolveResultLink tries the primary result locator, then the ordered
// fallback list, following the first navigable link. It reports whether any
// strategy yielded a navigation.
func (c *Checker) resolveResultLink(sess *session) bool {
	if el, err := sess.waitElementX(primaryResultXPath, c.config.ResultWait); err == nil {
		if c.followLink(sess, el) {
			return true
		}
	}

	for _, xpath := range fallbackResultXPaths() {
		el, err := sess.waitElementX(xpath, c.config.SettlePause)
		if err != nil {
			continue
		}
		if c.followLink(sess, el) {
			return true
		}
	}

	return false
}

// followLink navigates to the element's href directly when present,
// otherwise falls back to a scripted click.
func (c *Checker) followLink(sess *session, el *rod.Element) bool {
	if href := resolveHref(el); href != "" && !strings.HasPrefix(href, "javascript:") {
		return sess.navigate(href, c.config.ResultWait) == nil
	}

	_, err := el.Eval(`() => this.click()`)
	return err == nil
}

// determineStatus classifies a document page. An explicit current-revision
// marker compared against the reference's own date takes priority; keyword
// frequency scoring is the fallback.
func determineStatus(html, refDate string) Status {
	if m := revisionMarker.FindStringSubmatch(html); m != nil {
		if refDate != "" && m[1] == refDate {
			return StatusActive
		}
		return StatusExpired
	}

	expiredCount := 0
	for _, k := range validator.ExpiredKeywords() {
		expiredCount += strings.Count(html, k)
	}
	activeCount := 0
	for _, k := range validator.ActiveKeywords() {
		activeCount += strings.Count(html, k)
	}

	switch {
	case expiredCount > activeCount && expiredCount > 0:
		return StatusExpired
	case activeCount > expiredCount && activeCount > 0:
		return StatusActive
	default:
		return StatusUnknown
	}
}

// FormatQuery builds the search query for a reference: the raw citation
// text (capped) when it is long enough to be distinctive, otherwise a
// synthesized "type № number от date" string with title and number
// fallbacks.
func FormatQuery(ref refs.Reference) string {
	raw := strings.TrimSpace(ref.Raw)
	if len([]rune(raw)) > 10 {
		if runes := []rune(raw); len(runes) > 200 {
			return string(runes[:200])
		}
		return raw
	}

	var parts []string
	if ref.Type != "" {
		parts = append(parts, ref.Type)
	}
	if ref.Number != "" {
		parts = append(parts, "№ "+ref.Number)
	}
	if ref.Date != "" {
		parts = append(parts, "от "+ref.Date)
	}
	if ref.Title != "" && ref.Number == "" {
		title := ref.Title
		if runes := []rune(title); len(runes) > 100 {
			title = string(runes[:100])
		}
		parts = append(parts, title)
	}

	query := strings.TrimSpace(strings.Join(parts, " "))
	if query == "" {
		switch {
		case ref.Number != "":
			query = ref.Number
		case ref.Title != "":
			if runes := []rune(ref.Title); len(runes) > 100 {
				query = string(runes[:100])
			} else {
				query = ref.Title
			}
		default:
			query = "документ"
		}
	}

	return query
}

// newRotatedSession draws the next identity, forcing a pool skip after
// every RotateEvery completed searches, and launches a session with it.
func (c *Checker) newRotatedSession() (*session, error) {
	c.mu.Lock()
	if c.config.RotateEvery > 0 && c.searches >= c.config.RotateEvery {
		c.pool.Skip(c.config.RotateSkip)
		c.searches = 0
	}
	identity := c.pool.Next()
	c.mu.Unlock()

	sess, err := newSession(identity, c.config.Headless)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *Checker) recordCompletedSearch() {
	c.mu.Lock()
	c.searches++
	c.mu.Unlock()
}

// isSessionError reports whether an error message matches a known
// session-level failure marker.
func isSessionError(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range sessionErrorMarkers() {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isBlocked detects anti-bot interception in the page source.
func isBlocked(html string) bool {
	html = strings.ToLower(html)
	for _, indicator := range blockIndicators() {
		if strings.Contains(html, indicator) {
			return true
		}
	}
	return false
}
