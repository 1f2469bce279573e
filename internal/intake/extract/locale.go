package extract

import "regexp"

// Locale detection is a keyword heuristic over the bilingual form labels,
// used only when the mail source supplies no locale hint. It deliberately
// stays crude: an undetected locale skips service detection but never blocks
// field extraction, which carries its own bilingual labels.

var (
	estonianMarkers = regexp.MustCompile(`(?i)Ettevõtte|Registrikood|nõustamine|Osaleja nimi|Tööstusharu|E-post|Tere`)
	englishMarkers  = regexp.MustCompile(`(?i)Company or organization name|Registration code|Participant name|service units|consultancy|assessment`)
)

// DetectLocale returns "et", "en", or "" when neither dominates.
func DetectLocale(text string) string {
	et := len(estonianMarkers.FindAllStringIndex(text, -1))
	en := len(englishMarkers.FindAllStringIndex(text, -1))
	switch {
	case et > en:
		return "et"
	case en > et:
		return "en"
	default:
		return ""
	}
}
