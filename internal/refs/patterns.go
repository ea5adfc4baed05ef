package refs

import (
	"fmt"
	"regexp"
	"strings"
)

// docTokens returns the controlled vocabulary of document-type tokens, most
// specific first. Token order matters for deduplication: longer tokens win
// over shorter ones covering the same citation.
func docTokens() []string {
	return []string{
		"Федеральный закон",
		"Закон",
		"Конституция",
		"Кодекс",
		"Приказ",
		"Распоряжение",
		"Постановление",
		"Указ",
		"Декрет",
		"Регламент",
		"Технический регламент",
		"ТР ТС",
		"ТР ЕАЭС",
		"ГОСТ",
		"ГОСТ Р",
		"ISO",
		"IEC",
		"СНиП",
		"СП",
		"СанПиН",
		"ПНСТ",
		"ФНП",
	}
}

// genericTemplate matches "<token> ... от <date> ... № <number> ... «title»"
// with arbitrary intervening text (organizational boilerplate) between the
// type token and its fields. Date, number, and title are all optional; the
// title may be quoted or an unquoted capitalized tail. The token is fenced
// with explicit non-letter guards because \b only understands ASCII word
// characters: without them "закон" would match inside "законодательства".
const genericTemplate = `(?i)(?:^|[^\p{L}\d])%s(?:[^\p{L}]|$)(?:[^«»"]*?от\s+(?P<date>\d{1,2}\.\d{1,2}\.\d{4}|\d{1,2}\.\d{1,2}\.\d{2}|\d{4}-\d{2}-\d{2}))?(?:[^«»"]*?№\s*(?P<number>[A-Za-zА-Яа-я0-9\-./]+))?(?:[^«»"]*?[«"](?P<title>[^»"]+)[»"]|(?P<titleu>(?:\s+[А-Я][^.;]*)?))?`

// escapeToken escapes a vocabulary token for embedding in a pattern,
// tolerating any whitespace between its words.
func escapeToken(token string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(token), `\ `, `\s+`)
}

// extractionRules returns the full rule catalog: one generic rule per
// vocabulary token plus specialized ГОСТ rules. All rules run over the full
// text and their outputs are pooled; application order is immaterial.
func extractionRules() []ExtractionRule {
	rules := make([]ExtractionRule, 0, len(docTokens())+7)

	for _, tok := range docTokens() {
		// ГОСТ tokens are covered by the specialized rules below.
		if tok == "ГОСТ" || tok == "ГОСТ Р" {
			continue
		}
		rules = append(rules, ExtractionRule{
			Name:        "Generic " + tok,
			Regex:       regexp.MustCompile(fmt.Sprintf(genericTemplate, escapeToken(tok))),
			Type:        tok,
			Confidence:  0.7,
			Description: "Generic citation template for " + tok,
		})
	}

	rules = append(rules,
		ExtractionRule{
			Name:        "GOST with date",
			Regex:       regexp.MustCompile(`ГОСТ\s+(?P<number>\d{1,3}(?:\.\d{3})?(?:-\d{2,4})+)\s+(?:от\s+)?(?P<date>\d{1,2}\.\d{1,2}\.\d{4})\s*[«"](?P<title>[^»"]{1,200})[»"]`),
			Type:        "ГОСТ",
			Confidence:  0.95,
			Description: "ГОСТ with explicit date and quoted title",
			Examples:    []string{`ГОСТ 12.1.004-91 от 01.01.1992 «Пожарная безопасность»`},
		},
		ExtractionRule{
			Name:        "GOST R with date",
			Regex:       regexp.MustCompile(`ГОСТ\s+Р\s+(?:ИСО|ISO)?(?:/МЭК|/IEC)?\s+(?P<number>[\d.\-]+(?:-\d{1,4})+)\s+(?:от\s+)?(?P<date>\d{1,2}\.\d{1,2}\.\d{4})\s*[«"](?P<title>[^»"]{1,200})[»"]`),
			Type:        "ГОСТ Р",
			Confidence:  0.95,
			Description: "ГОСТ Р (optionally ИСО/МЭК) with explicit date and quoted title",
			Examples:    []string{`ГОСТ Р ИСО 9001-2015 от 28.09.2015 «Системы менеджмента качества»`},
		},
		ExtractionRule{
			Name:        "GOST quoted",
			Regex:       regexp.MustCompile(`ГОСТ\s+(?P<number>\d{1,3}(?:\.\d{3})?(?:-\d{2,4})+)\s*[«"](?P<title>[^»"]{1,200})[»"]`),
			Type:        "ГОСТ",
			Confidence:  0.9,
			Description: "ГОСТ with quoted title",
			Examples:    []string{`ГОСТ 12.1.004-91 «Пожарная безопасность»`},
		},
		ExtractionRule{
			Name:        "GOST R quoted",
			Regex:       regexp.MustCompile(`ГОСТ\s+Р\s+(?:ИСО|ISO)(?:/МЭК|/IEC)?\s+(?P<number>[\d.\-]+(?:-\d{1,4})+)\s*[«"](?P<title>[^»"]{1,200})[»"]`),
			Type:        "ГОСТ Р",
			Confidence:  0.9,
			Description: "ГОСТ Р ИСО/МЭК with quoted title",
			Examples:    []string{`ГОСТ Р ИСО/МЭК 27001-2021 «Информационная безопасность»`},
		},
		ExtractionRule{
			Name:        "GOST unquoted",
			Regex:       regexp.MustCompile(`ГОСТ\s+(?P<number>\d{1,3}(?:\.\d{3})?(?:-\d{2,4})+)(?:\s+(?P<titleu>[^;.«»"]{1,200}))?`),
			Type:        "ГОСТ",
			Confidence:  0.8,
			Description: "ГОСТ with unquoted title bounded by the next ГОСТ token or sentence punctuation",
			Examples:    []string{`ГОСТ 2.105-95 Общие требования к текстовым документам`},
		},
		ExtractionRule{
			Name:        "GOST R unquoted",
			Regex:       regexp.MustCompile(`ГОСТ\s+Р\s+(?:ИСО|ISO)?(?:/МЭК|/IEC)?\s*(?P<number>[\d.\-]+(?:-\d{1,4})+)(?:\s+(?P<titleu>[^;.«»"]{1,200}))?`),
			Type:        "ГОСТ Р",
			Confidence:  0.8,
			Description: "ГОСТ Р with unquoted title bounded by the next ГОСТ token or sentence punctuation",
			Examples:    []string{`ГОСТ Р 50571.1-2009 Электроустановки низковольтные`},
		},
		ExtractionRule{
			Name:        "GOST R ISO",
			Regex:       regexp.MustCompile(`ГОСТ\s+Р\s+ИСО(?:/МЭК)?\s+(?P<number>[\d.\-]+(?:-\d{1,4})+)(?:\s+(?P<titleu>[^;.«»"]{1,200}))?`),
			Type:        "ГОСТ Р",
			Confidence:  0.85,
			Description: "ГОСТ Р ИСО/МЭК with ИСО-style numbering",
			Examples:    []string{`ГОСТ Р ИСО/МЭК 12207-2010 Процессы жизненного цикла программных средств`},
		},
	)

	return rules
}

// Regexes shared by the preprocessing, splitting, and normalization passes.
var (
	// quoteBeforeGOST inserts a separator between a closing quote and the
	// next ГОСТ token so concatenated citations split cleanly.
	quoteBeforeGOST = regexp.MustCompile(`([»"]);?\s+(ГОСТ\s+(?:Р\s+)?)`)

	gostISOSlash = regexp.MustCompile(`ГОСТ\s+Р\s+ИСО\s*/\s*МЭК`)
	gostISO      = regexp.MustCompile(`ГОСТ\s+Р\s+ИСО`)

	// gostToken locates any ГОСТ citation head, used for splitting titles
	// and long runs at citation boundaries.
	gostToken = regexp.MustCompile(`ГОСТ\s+(?:Р\s+)?(?:ИСО|ISO)?(?:/МЭК|/IEC)?\s*[\d.\-]+(?:-\d{1,4})+`)

	// gostHead captures the citation head parts: Р marker, ИСО marker, number.
	gostHead = regexp.MustCompile(`ГОСТ\s+(Р\s+)?(?:(ИСО|ISO)(?:/МЭК|/IEC)?\s+)?([\d.\-]+(?:-\d{1,4})+)`)

	// gostTail matches text following a citation head within one fragment.
	gostTail = regexp.MustCompile(`ГОСТ\s+(?:Р\s+)?(?:ИСО|ISO)?(?:/МЭК|/IEC)?\s*[\d.\-]+(?:-\d{1,4})+\s+(.+)`)

	// longGOSTRun flags concatenated citation runs without separators.
	longGOSTRun = regexp.MustCompile(`ГОСТ[^;]{200,}`)

	// longRunBoundary marks split points inside a long run: a semicolon
	// group or closing quote directly before the next ГОСТ token.
	longRunBoundary = regexp.MustCompile(`(?:;+|[»"])\s*ГОСТ`)

	quotedTitle = regexp.MustCompile(`[«"](.*?)[»"]`)

	trailingGOST  = regexp.MustCompile(`\s+ГОСТ\s+.*$`)
	afterSemi     = regexp.MustCompile(`\s*;.*`)
	nextGOSTBound = regexp.MustCompile(`\s+ГОСТ\s+\d`)

	wsCollapse = regexp.MustCompile(`\s+`)
	nbspBreaks = regexp.MustCompile("[\\x{00A0}\\n\\r]+")
)

// Date and number backfill patterns for partially extracted references.
var (
	// Word boundaries keep dotted standard numbers like 12.1.004-91 from
	// being misread as dates.
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{2}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	}

	numberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`№\s*([A-Za-zА-Яа-я0-9\-./]+)`),
		regexp.MustCompile(`номер\s+([A-Za-zА-Яа-я0-9\-./]+)`),
	}

	dateParts = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{2,4})`)
)

// typeWords are tokens that must never be mistaken for a document number
// during number backfill.
var typeWords = map[string]bool{
	"приказ":        true,
	"постановление": true,
	"указ":          true,
	"закон":         true,
	"распоряжение":  true,
	"федеральный":   true,
}
