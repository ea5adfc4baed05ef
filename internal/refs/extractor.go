// Package refs extracts structured references to normative documents
// (statutes, standards, decrees) from free text using a compiled rule
// catalog, then repairs, splits, and deduplicates the matches.
package refs

import (
	"context"
	"strings"
	"time"
)

// Extractor applies the rule catalog to normalized text and produces
// structured references.
type Extractor struct {
	rules []ExtractionRule
	opts  ExtractionOptions
}

// New creates an extractor with the given options.
func New(opts ExtractionOptions) *Extractor {
	return &Extractor{
		rules: extractionRules(),
		opts:  opts,
	}
}

// Rules returns the compiled rule catalog.
func (e *Extractor) Rules() []ExtractionRule {
	return e.rules
}

// Extract runs the full extraction pipeline over text: whitespace
// normalization, preprocessing, rule application, long-run splitting,
// optional LLM fallback, compound-title splitting, field backfill, cleanup,
// and deduplication.
func (e *Extractor) Extract(ctx context.Context, text string) (*ExtractionResult, error) {
	start := time.Now()

	text = NormalizeWhitespace(text)
	text = preprocessGOST(text)

	var result ExtractionResult

	var refs []Reference
	for _, rule := range e.rules {
		refs = append(refs, applyRule(rule, text)...)
	}

	// Long concatenated citation runs slip past the per-rule patterns;
	// re-scan them with the dedicated splitter.
	for _, run := range longGOSTRun.FindAllString(text, -1) {
		refs = append(refs, extractFromLongRun(run)...)
	}

	result.Summary.TotalMatches = len(refs)

	if e.opts.UseLLMFallback && e.opts.LLMAPIKey != "" {
		llmRefs, err := e.extractWithLLM(ctx, text)
		if err != nil {
			result.Warnings = append(result.Warnings, "llm fallback failed: "+err.Error())
		} else {
			refs = append(refs, llmRefs...)
			result.Summary.LLMReferences = len(llmRefs)
		}
	}

	refs = SplitCompound(refs)
	refs = Enhance(refs)
	refs = Clean(refs)
	refs = Deduplicate(refs)

	result.References = refs
	result.Summary.UniqueReferences = len(refs)
	result.Summary.ReferencesByType = make(map[string]int, len(refs))
	for _, r := range refs {
		result.Summary.ReferencesByType[r.Type]++
	}
	result.ProcessTime = time.Since(start)

	return &result, nil
}

// FilterValidatable partitions references into those carrying the required
// fields for validation (type, number-or-title, date) and those skipped.
func FilterValidatable(refs []Reference) (valid, skipped []Reference) {
	for _, r := range refs {
		if r.HasRequiredFields() {
			valid = append(valid, r)
		} else {
			skipped = append(skipped, r)
		}
	}
	return valid, skipped
}

// NormalizeWhitespace collapses non-breaking spaces and line breaks, then
// squeezes runs of whitespace into single spaces.
func NormalizeWhitespace(text string) string {
	text = nbspBreaks.ReplaceAllString(text, " ")
	return strings.TrimSpace(wsCollapse.ReplaceAllString(text, " "))
}

// preprocessGOST separates concatenated ГОСТ citations and normalizes
// ИСО/МЭК spelling variants so the specialized rules match consistently.
func preprocessGOST(text string) string {
	text = quoteBeforeGOST.ReplaceAllString(text, "$1; $2")
	text = gostISOSlash.ReplaceAllString(text, "ГОСТ Р ИСО/МЭК")
	text = gostISO.ReplaceAllString(text, "ГОСТ Р ИСО")
	return text
}

// applyRule runs one rule over the text and builds a reference per match.
// Malformed captures (empty after trimming) become absent fields.
func applyRule(rule ExtractionRule, text string) []Reference {
	var refs []Reference

	for _, m := range rule.Regex.FindAllStringSubmatchIndex(text, -1) {
		group := func(name string) string {
			idx := rule.Regex.SubexpIndex(name)
			if idx < 0 || m[2*idx] < 0 {
				return ""
			}
			return text[m[2*idx]:m[2*idx+1]]
		}

		title := strings.TrimSpace(group("title"))
		if title == "" {
			title = strings.TrimSpace(group("titleu"))
			// Unquoted titles are bounded by the next ГОСТ citation.
			if loc := nextGOSTBound.FindStringIndex(title); loc != nil {
				title = strings.TrimSpace(title[:loc[0]])
			}
		}

		refs = append(refs, Reference{
			Raw:    strings.TrimSpace(text[m[0]:m[1]]),
			Type:   rule.Type,
			Number: group("number"),
			Date:   group("date"),
			Title:  title,
		})
	}

	return refs
}

// extractFromLongRun splits a long concatenated citation run at semicolon or
// quote boundaries and extracts one reference per fragment.
func extractFromLongRun(text string) []Reference {
	var refs []Reference

	for _, part := range splitAtBoundaries(text) {
		part = strings.TrimSpace(part)
		if part == "" || !strings.Contains(part, "ГОСТ") {
			continue
		}

		head := gostHead.FindStringSubmatch(part)
		if head == nil {
			continue
		}

		docType := "ГОСТ"
		if head[1] != "" {
			docType = "ГОСТ Р"
		}

		title := ""
		if qm := quotedTitle.FindStringSubmatch(part); qm != nil {
			title = qm[1]
		} else if tm := gostTail.FindStringSubmatch(part); tm != nil {
			title = strings.TrimSpace(trailingGOST.ReplaceAllString(tm[1], ""))
			if len([]rune(title)) > 200 {
				title = strings.TrimSpace(string([]rune(title)[:200]))
			}
		}

		refs = append(refs, Reference{
			Raw:    truncateRaw(part),
			Type:   docType,
			Number: head[3],
			Title:  title,
		})
	}

	return refs
}

// splitAtBoundaries cuts text before each ГОСТ token that follows a
// semicolon group or closing quote.
func splitAtBoundaries(text string) []string {
	locs := longRunBoundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var parts []string
	prev := 0
	for _, loc := range locs {
		// The boundary match ends at the start of "ГОСТ"; cut there.
		cut := loc[1] - len("ГОСТ")
		parts = append(parts, text[prev:cut])
		prev = cut
	}
	parts = append(parts, text[prev:])

	return parts
}

// truncateRaw caps a raw span for storage, marking the cut with an ellipsis.
func truncateRaw(s string) string {
	r := []rune(s)
	if len(r) > 100 {
		return string(r[:100]) + "..."
	}
	return s
}
