package refs

import (
	"fmt"
	"sort"
	"strings"
)

// contentKey identifies a document independent of the rule that extracted
// it: number, date, and the first 50 characters of the title.
func contentKey(r Reference) string {
	title := r.Title
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:50])
	}
	return fmt.Sprintf("%s|%s|%s", r.Number, r.Date, title)
}

// Deduplicate removes references describing the same document. Two
// references sharing a content key are duplicates even when extracted by
// different rules; the one with the more specific (longer) type token
// survives, and ties keep the first seen.
func Deduplicate(refs []Reference) []Reference {
	// Stable sort by decreasing type length so "Федеральный закон" beats
	// "Закон" for the same citation.
	sorted := make([]Reference, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Type) > len(sorted[j].Type)
	})

	seen := make(map[string]bool, len(sorted))
	unique := make([]Reference, 0, len(sorted))

	for _, r := range sorted {
		key := contentKey(r)
		// An all-empty key carries no identity; such references are
		// kept only once per type.
		if strings.Trim(key, "|") == "" {
			key = r.Type + "|" + key
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}

	return unique
}
