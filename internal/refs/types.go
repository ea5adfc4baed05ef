package refs

import (
	"regexp"
	"time"
)

// Reference represents one structured citation to a normative document
// extracted from free text.
type Reference struct {
	Raw    string `json:"raw"`
	Type   string `json:"type"`
	Number string `json:"number,omitempty"`
	Date   string `json:"date,omitempty"`
	Title  string `json:"title,omitempty"`
}

// HasRequiredFields reports whether the reference carries enough identity to
// be validated: a type, a number or title, and a date.
func (r Reference) HasRequiredFields() bool {
	return r.Type != "" && (r.Number != "" || r.Title != "") && r.Date != ""
}

// MissingFields lists the required fields the reference lacks.
func (r Reference) MissingFields() []string {
	var missing []string
	if r.Type == "" {
		missing = append(missing, "type")
	}
	if r.Number == "" && r.Title == "" {
		missing = append(missing, "number/title")
	}
	if r.Date == "" {
		missing = append(missing, "date")
	}
	return missing
}

// ExtractionRule binds one document-type token to a compiled pattern with
// optional capture groups for date, number, and title.
type ExtractionRule struct {
	Name        string         `json:"name"`
	Regex       *regexp.Regexp `json:"-"`
	Type        string         `json:"type"`
	Confidence  float64        `json:"confidence"`
	Description string         `json:"description"`
	Examples    []string       `json:"examples,omitempty"`
}

// ExtractionResult contains the complete result of reference extraction.
type ExtractionResult struct {
	References  []Reference     `json:"references"`
	Skipped     []Reference     `json:"skipped,omitempty"`
	Summary     ExtractionStats `json:"summary"`
	ProcessTime time.Duration   `json:"process_time"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// ExtractionStats provides summary statistics for extracted references.
type ExtractionStats struct {
	TotalMatches     int            `json:"total_matches"`
	UniqueReferences int            `json:"unique_references"`
	ReferencesByType map[string]int `json:"references_by_type"`
	LLMReferences    int            `json:"llm_references,omitempty"`
}

// ExtractionOptions configures the extraction process.
type ExtractionOptions struct {
	UseLLMFallback bool   `json:"use_llm_fallback"`
	LLMAPIKey      string `json:"-"`
	LLMModel       string `json:"llm_model,omitempty"`
	MaxTitleLength int    `json:"max_title_length"`
	MaxTextForLLM  int    `json:"max_text_for_llm"`
}

// DefaultExtractionOptions returns default extraction options.
func DefaultExtractionOptions() ExtractionOptions {
	return ExtractionOptions{
		UseLLMFallback: false,
		LLMModel:       "gpt-4o-mini",
		MaxTitleLength: 200,
		MaxTextForLLM:  8000,
	}
}
