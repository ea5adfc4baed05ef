package refs

import (
	"fmt"
	"strconv"
	"strings"
)

// Enhance backfills missing dates and numbers by re-scanning each
// reference's raw span. Number candidates equal to known type-token words
// are rejected so the type itself is never misread as a number.
func Enhance(refs []Reference) []Reference {
	enhanced := make([]Reference, 0, len(refs))

	for _, ref := range refs {
		if ref.Date == "" {
			for _, p := range datePatterns {
				if m := p.FindString(ref.Raw); m != "" {
					ref.Date = m
					break
				}
			}
		}

		if ref.Number == "" {
			for _, p := range numberPatterns {
				m := p.FindStringSubmatch(ref.Raw)
				if m == nil {
					continue
				}
				candidate := strings.TrimSpace(m[1])
				if typeWords[strings.ToLower(candidate)] {
					continue
				}
				ref.Number = candidate
				break
			}
		}

		enhanced = append(enhanced, ref)
	}

	return enhanced
}

// Clean canonicalizes field formats: whitespace collapse on all fields,
// two-digit year expansion and zero-padded day/month on dates, and a
// 200-character title cap. References without a type are dropped.
func Clean(refs []Reference) []Reference {
	cleaned := make([]Reference, 0, len(refs))

	for _, ref := range refs {
		ref.Type = squeeze(ref.Type)
		ref.Number = squeeze(ref.Number)
		ref.Title = squeeze(ref.Title)

		if ref.Date != "" {
			ref.Date = normalizeDate(strings.TrimSpace(ref.Date))
		}

		if runes := []rune(ref.Title); len(runes) > 200 {
			ref.Title = strings.TrimSpace(string(runes[:200]))
		}

		if ref.Type != "" {
			cleaned = append(cleaned, ref)
		}
	}

	return cleaned
}

// normalizeDate converts DD.MM.YY dates to DD.MM.YYYY (years below 50 map
// to 20xx, the rest to 19xx) and zero-pads day and month. Dates in other
// shapes pass through unchanged.
func normalizeDate(date string) string {
	m := dateParts.FindStringSubmatch(date)
	if m == nil {
		return date
	}

	year := m[3]
	if len(year) == 2 {
		n, err := strconv.Atoi(year)
		if err != nil {
			return date
		}
		if n < 50 {
			year = "20" + year
		} else {
			year = "19" + year
		}
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])

	return fmt.Sprintf("%02d.%02d.%s", day, month, year)
}

// SplitCompound splits references whose title embeds more than one ГОСТ
// citation into one reference per embedded citation, each inheriting the
// parent's date. Titles embedding a single trailing citation are trimmed
// instead.
func SplitCompound(refs []Reference) []Reference {
	result := make([]Reference, 0, len(refs))

	for _, ref := range refs {
		if ref.Title == "" {
			result = append(result, ref)
			continue
		}

		matches := gostToken.FindAllStringIndex(ref.Title, -1)
		if len(matches) <= 1 {
			clean := strings.TrimSpace(trailingGOST.ReplaceAllString(ref.Title, ""))
			if clean != "" && len(clean) < len(ref.Title) {
				ref.Title = clean
			}
			result = append(result, ref)
			continue
		}

		result = append(result, splitTitle(ref, matches)...)
	}

	return result
}

// splitTitle cuts a compound title at each embedded citation head and builds
// one reference per fragment.
func splitTitle(ref Reference, matches [][]int) []Reference {
	var parts []string
	prev := 0
	for _, loc := range matches {
		if loc[0] > prev {
			parts = append(parts, ref.Title[prev:loc[0]])
		}
		prev = loc[0]
	}
	parts = append(parts, ref.Title[prev:])

	var result []Reference
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		head := gostHead.FindStringSubmatch(part)
		if head == nil || !strings.HasPrefix(part, "ГОСТ") {
			// The leading fragment may predate the first embedded
			// citation; keep the parent for it.
			if i == 0 {
				result = append(result, ref)
			}
			continue
		}

		docType := "ГОСТ"
		if head[1] != "" {
			docType = "ГОСТ Р"
		}

		title := ""
		if tm := gostTail.FindStringSubmatch(part); tm != nil {
			title = tm[1]
			title = trailingGOST.ReplaceAllString(title, "")
			title = afterSemi.ReplaceAllString(title, "")
			title = strings.TrimSpace(title)
			if runes := []rune(title); len(runes) > 200 {
				title = strings.TrimSpace(string(runes[:200]))
			}
		}

		result = append(result, Reference{
			Raw:    truncateRaw(part),
			Type:   docType,
			Number: head[3],
			Date:   ref.Date,
			Title:  title,
		})
	}

	return result
}

func squeeze(s string) string {
	return strings.TrimSpace(wsCollapse.ReplaceAllString(s, " "))
}
