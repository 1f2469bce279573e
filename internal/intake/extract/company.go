package extract

import (
	"regexp"
	"strings"
)

// Legal-form canonicalization from the upstream registry conventions: spelled
// out forms collapse to their abbreviation, a leading form moves to the end,
// and the abbreviation is always uppercased.
//
// Go's \b is ASCII-only, so abbreviations ending in a non-ASCII rune (OÜ,
// MTÜ) are delimited explicitly instead.
var (
	companyPrefix = regexp.MustCompile(`(?i)^(AS|OÜ|SAS|MTÜ)[\s.-]+`)
	companyForms  = []struct {
		re           *regexp.Regexp
		abbreviation string
	}{
		{regexp.MustCompile(`(?i)\baktsiaselts\b`), "AS"},
		{regexp.MustCompile(`(?i)(^|[\s.,-])osaühing($|[\s.,-])`), "OÜ"},
		{regexp.MustCompile(`(?i)\bsihtasutus\b`), "SAS"},
		{regexp.MustCompile(`(?i)(^|[\s.,-])mittetulundusühing($|[\s.,-])`), "MTÜ"},
		{regexp.MustCompile(`(?i)\bAS\b`), "AS"},
		{regexp.MustCompile(`(?i)(^|[\s.,-])OÜ($|[\s.,-])`), "OÜ"},
		{regexp.MustCompile(`(?i)\bSAS\b`), "SAS"},
		{regexp.MustCompile(`(?i)(^|[\s.,-])MTÜ($|[\s.,-])`), "MTÜ"},
	}
)

// normalizeCompanyName cleans a raw company name into the canonical
// "<name> <FORM>" shape used for store records and notifications.
func normalizeCompanyName(raw string) string {
	name := strings.TrimSpace(raw)
	suffix := ""

	if m := companyPrefix.FindString(name); m != "" {
		name = strings.TrimSpace(companyPrefix.ReplaceAllString(name, ""))
		suffix = strings.ToUpper(strings.Trim(m, " \t.-"))
	}

	for _, form := range companyForms {
		if form.re.MatchString(name) {
			name = strings.TrimSpace(form.re.ReplaceAllString(name, " "))
			suffix = form.abbreviation
		}
	}

	if suffix != "" {
		name = name + " " + suffix
	}

	name = strings.ReplaceAll(name, ",", "")
	return strings.TrimSpace(collapseSpaces(name))
}

var innerSpaces = regexp.MustCompile(`\s{2,}`)

func collapseSpaces(s string) string {
	return innerSpaces.ReplaceAllString(s, " ")
}
