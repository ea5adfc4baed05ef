package refs

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func findByTitle(refs []Reference, title string) (Reference, bool) {
	for _, r := range refs {
		if r.Title == title {
			return r, true
		}
	}
	return Reference{}, false
}

func TestExtractGOSTQuoted(t *testing.T) {
	text := `Работы выполняются согласно ГОСТ 12.1.004-91 «Пожарная безопасность».`

	result, err := New(DefaultExtractionOptions()).Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	ref, ok := findByTitle(result.References, "Пожарная безопасность")
	if !ok {
		t.Fatalf("no reference with expected title, got %+v", result.References)
	}

	if ref.Type != "ГОСТ" {
		t.Errorf("type = %q, want %q", ref.Type, "ГОСТ")
	}
	if ref.Number != "12.1.004-91" {
		t.Errorf("number = %q, want %q", ref.Number, "12.1.004-91")
	}
	if ref.Date != "" {
		t.Errorf("date = %q, want empty (standard number must not be misread as a date)", ref.Date)
	}
}

func TestExtractGenericDecree(t *testing.T) {
	text := `Действует Постановление Правительства РФ от 01.01.2021 № 1 «О мерах поддержки», работы продолжаются.`

	result, err := New(DefaultExtractionOptions()).Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	ref, ok := findByTitle(result.References, "О мерах поддержки")
	if !ok {
		t.Fatalf("no reference with expected title, got %+v", result.References)
	}

	if !strings.HasPrefix(strings.ToLower(ref.Type), "постановление") {
		t.Errorf("type = %q, want Постановление", ref.Type)
	}
	if ref.Number != "1" {
		t.Errorf("number = %q, want %q", ref.Number, "1")
	}
	if ref.Date != "01.01.2021" {
		t.Errorf("date = %q, want %q", ref.Date, "01.01.2021")
	}
}

func TestExtractIdempotent(t *testing.T) {
	text := `Применяются ГОСТ 2.105-95 и ГОСТ Р ИСО 9001-2015 «Системы менеджмента качества», а также Федеральный закон от 27.07.2006 № 152-ФЗ «О персональных данных».`

	extractor := New(DefaultExtractionOptions())

	first, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("first Extract() error = %v", err)
	}
	second, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}

	if !reflect.DeepEqual(first.References, second.References) {
		t.Errorf("extraction is not deterministic:\nfirst:  %+v\nsecond: %+v",
			first.References, second.References)
	}

	// Running extraction over re-joined raw spans must not invent new
	// references.
	var spans []string
	for _, r := range first.References {
		spans = append(spans, r.Raw)
	}
	rerun, err := extractor.Extract(context.Background(), strings.Join(spans, "; "))
	if err != nil {
		t.Fatalf("rerun Extract() error = %v", err)
	}
	if len(rerun.References) > len(first.References) {
		t.Errorf("re-extraction grew the set: %d -> %d",
			len(first.References), len(rerun.References))
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses runs", "ГОСТ   12.1.004-91", "ГОСТ 12.1.004-91"},
		{"line breaks", "Федеральный\nзакон", "Федеральный закон"},
		{"non-breaking space", "ГОСТ Р 50571.1-2009", "ГОСТ Р 50571.1-2009"},
		{"trims edges", "  Приказ № 5  ", "Приказ № 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeWhitespace(tt.input); got != tt.want {
				t.Errorf("NormalizeWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFilterValidatable(t *testing.T) {
	refs := []Reference{
		{Type: "ГОСТ", Number: "12.1.004-91", Date: "01.01.1992"},
		{Type: "Приказ", Title: "Об утверждении правил", Date: "05.05.2022"},
		{Type: "ГОСТ", Number: "2.105-95"},
		{Type: "Закон", Date: "01.01.2020"},
	}

	valid, skipped := FilterValidatable(refs)

	if len(valid) != 2 {
		t.Errorf("valid = %d, want 2", len(valid))
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %d, want 2", len(skipped))
	}

	missing := skipped[0].MissingFields()
	if len(missing) != 1 || missing[0] != "date" {
		t.Errorf("MissingFields() = %v, want [date]", missing)
	}
}

func TestSplitAtBoundaries(t *testing.T) {
	text := `ГОСТ 12.1.004-91 «Пожарная безопасность»; ГОСТ 2.105-95 требования;; ГОСТ Р 50571.1-2009`

	parts := splitAtBoundaries(text)
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3: %q", len(parts), parts)
	}

	for i, part := range parts {
		if !strings.Contains(part, "ГОСТ") {
			t.Errorf("part %d lost its citation: %q", i, part)
		}
	}

	if !strings.HasPrefix(strings.TrimSpace(parts[2]), "ГОСТ Р") {
		t.Errorf("last part = %q, want ГОСТ Р citation", parts[2])
	}
}

func TestExtractLongRun(t *testing.T) {
	// Citations concatenated back to back with no separators, long enough
	// to trip the dedicated run splitter.
	var b strings.Builder
	b.WriteString("Перечень: ")
	numbers := []string{"12.1.004-91", "2.105-95", "7.32-2017", "8.417-2002"}
	for _, n := range numbers {
		b.WriteString("ГОСТ ")
		b.WriteString(n)
		b.WriteString(" «Требования к оформлению технической документации раздел ")
		b.WriteString(strings.Repeat("А", 20))
		b.WriteString("»")
	}

	result, err := New(DefaultExtractionOptions()).Extract(context.Background(), b.String())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	got := make(map[string]bool)
	for _, r := range result.References {
		got[r.Number] = true
	}
	for _, n := range numbers {
		if !got[n] {
			t.Errorf("number %s missing from %+v", n, result.References)
		}
	}
}
