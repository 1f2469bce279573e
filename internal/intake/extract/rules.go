package extract

import (
	"regexp"
	"strings"
)

// valueRule is one predicate/transform pair for a field. Rules for a field
// are tried strictly in slice order and the FIRST match wins; the ordering
// below is part of the extraction contract and covered by tests.
type valueRule struct {
	pattern   *regexp.Regexp
	transform func(match []string) string
}

// Labels are bilingual (Estonian|English), anchored at line start, matching
// the original intake forms. The value sits after the colon on the same
// line, or on the next non-empty line when the label stands alone.
var (
	companyLabel      = regexp.MustCompile(`(?i)^(Ettevõtte või organisatsiooni nimi|Company or organization name|Company)\s*:`)
	registrationLabel = regexp.MustCompile(`(?i)^(Registrikood|Registration code|Reg\.?\s?Code)\s*:`)
	emailLabel        = regexp.MustCompile(`(?i)^(E-post|E-mail)\s*:`)
	phoneLabel        = regexp.MustCompile(`(?i)^(Telefoni number|Phone number)\s*:`)
	industryLabel     = regexp.MustCompile(`(?i)^(Tööstusharu|Industry)\s*:`)
	participantLabel  = regexp.MustCompile(`(?i)^(Osaleja nimi|Participant name|Name of contact person)\s*:`)
)

// registrationCodeRules: the jurisdiction-prefixed form takes priority over
// the legacy bare-digit form, which is canonicalized to the default "EE"
// jurisdiction (the upstream registry is purely Estonian).
var registrationCodeRules = []valueRule{
	{
		pattern: regexp.MustCompile(`([A-Za-z]{2})\s?(\d{6,8})`),
		transform: func(m []string) string {
			return strings.ToUpper(m[1]) + m[2]
		},
	},
	{
		pattern: regexp.MustCompile(`\b(\d{6,8})\b`),
		transform: func(m []string) string {
			return "EE" + m[1]
		},
	},
}

var emailRules = []valueRule{
	{
		pattern: regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`),
		transform: func(m []string) string {
			return m[0]
		},
	},
}

// text rules pass the cleaned value through unchanged.
var textRules = []valueRule{
	{
		pattern: regexp.MustCompile(`\S.*`),
		transform: func(m []string) string {
			return strings.TrimSpace(m[0])
		},
	},
}

var companyRules = []valueRule{
	{
		pattern: regexp.MustCompile(`\S.*`),
		transform: func(m []string) string {
			return normalizeCompanyName(m[0])
		},
	},
}

// applyRules returns the first rule's transformed match, or "" when no rule
// matches the value text.
func applyRules(rules []valueRule, value string) string {
	for _, r := range rules {
		if m := r.pattern.FindStringSubmatch(value); m != nil {
			return r.transform(m)
		}
	}
	return ""
}
