package validator

// Source is one external endpoint queried for a document's legal status.
// The URL template carries a single {query} placeholder substituted with the
// percent-encoded query.
type Source struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// DefaultSources returns the fixed source registry in query order:
// legislation portals first, then standards databases.
func DefaultSources() []Source {
	return []Source{
		// legislation
		{Name: "pravo.gov.ru", Template: "https://pravo.gov.ru/search/?query={query}"},
		{Name: "consultant.ru", Template: "https://www.consultant.ru/search/?q={query}"},
		{Name: "garant.ru", Template: "https://www.garant.ru/search/?q={query}"},
		{Name: "rulaws.ru", Template: "https://rulaws.ru/search/?q={query}"},
		// standards
		{Name: "docs.cntd.ru", Template: "https://docs.cntd.ru/search/?searchtext={query}"},
		{Name: "gostrf.com", Template: "https://gostrf.com/search/?q={query}"},
		{Name: "standartgost.ru", Template: "https://standartgost.ru/search/?q={query}"},
		{Name: "gov.spb.ru", Template: "https://www.gov.spb.ru/search/?q={query}"},
		{Name: "gostassistent.ru", Template: "https://gostassistent.ru/search?q={query}"},
	}
}

// secondPassTemplate is the dedicated source queried once more when the
// aggregate verdict is inconclusive.
const (
	secondPassName     = "gostassistent.ru"
	secondPassTemplate = "https://gostassistent.ru/search?q={query}"
)

// ExpiredKeywords are response-body indicators that a document is no longer
// in force.
func ExpiredKeywords() []string {
	return []string{
		"не действует",
		"утратил силу",
		"утратила силу",
		"утратило силу",
		"признан утратившим силу",
		"отменен",
		"отменена",
		"заменен",
		"заменена",
	}
}

// ActiveKeywords are response-body indicators that a document is currently
// in force.
func ActiveKeywords() []string {
	return []string{
		"действует",
		"действующая редакция",
		"актуально",
	}
}
