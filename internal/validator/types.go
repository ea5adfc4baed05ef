package validator

import "time"

// Status classifies a document's legal standing as reported by a source or
// by the aggregate of all sources.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusUnknown Status = "unknown"
)

// Verdict is the validation outcome for one reference: the per-source
// classifications, the aggregated status, and a confidence score.
type Verdict struct {
	SourceStatuses map[string]Status `json:"source_statuses"`
	Status         Status            `json:"status"`
	Confidence     float64           `json:"confidence"`
	Source         string            `json:"source,omitempty"`
	Elapsed        time.Duration     `json:"elapsed,omitempty"`
}

// Config tunes the concurrent fan-out and response classification.
type Config struct {
	Sources           []Source      `json:"sources"`
	MaxSources        int           `json:"max_sources"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	BatchTimeout      time.Duration `json:"batch_timeout"`
	SecondPassTimeout time.Duration `json:"second_pass_timeout"`
	MaxConnections    int           `json:"max_connections"`
	MaxKeepalive      int           `json:"max_keepalive"`
	Workers           int           `json:"workers"`
	UserAgent         string        `json:"user_agent"`
	ExpiredKeywords   []string      `json:"expired_keywords"`
	ActiveKeywords    []string      `json:"active_keywords"`
}

// DefaultConfig returns the standard validator configuration.
func DefaultConfig() Config {
	return Config{
		Sources:           DefaultSources(),
		MaxSources:        10,
		RequestTimeout:    10 * time.Second,
		BatchTimeout:      30 * time.Second,
		SecondPassTimeout: 20 * time.Second,
		MaxConnections:    10,
		MaxKeepalive:      5,
		Workers:           5,
		UserAgent:         "Mozilla/5.0 (compatible; DocumentValidator/1.0; +https://example.com)",
		ExpiredKeywords:   ExpiredKeywords(),
		ActiveKeywords:    ActiveKeywords(),
	}
}
