// Package route computes the destination database selector from detected
// service metadata. The rule sits in front of the reconciliation core, which
// keeps treating the selector as an opaque input.
package route

import (
	"sort"

	"intake/internal/intake/models"
)

// SelectorMain is the company register every message may fall back to.
const SelectorMain models.Selector = "main"

var serviceSelectors = map[models.Service]models.Selector{
	models.ServiceDigitalMaturity: SelectorMain,
	models.ServiceAIConsultancy:   "ai-consultancy",
	models.ServicePrivateFunding:  "private-funding",
	models.ServicePublicMeasures:  "public-measures",
	models.ServiceRobotics:        "robotics-consultancy",
	models.ServicePreAccelerator:  "pre-accelerator",
}

// Select picks the destination database. Exactly one detected service routes
// to that service's database; none, several, or unknown service metadata
// falls back to the main database rather than guessing between candidates.
func Select(counts map[models.Service]int) models.Selector {
	var active []models.Service
	for svc, n := range counts {
		if n > 0 {
			active = append(active, svc)
		}
	}
	if len(active) != 1 {
		return SelectorMain
	}
	if sel, ok := serviceSelectors[active[0]]; ok {
		return sel
	}
	return SelectorMain
}

// Selectors returns every known destination, main first. Config wiring uses
// it to derive the per-destination recipient variables.
func Selectors() []models.Selector {
	seen := map[models.Selector]bool{SelectorMain: true}
	out := []models.Selector{SelectorMain}
	for _, sel := range serviceSelectors {
		if !seen[sel] {
			seen[sel] = true
			out = append(out, sel)
		}
	}
	rest := out[1:]
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return out
}
