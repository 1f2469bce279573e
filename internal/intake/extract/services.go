package extract

import (
	"regexp"
	"strconv"
	"strings"

	"intake/internal/intake/models"
)

// Service detection mirrors the registration forms: a category keyword marks
// one service unit unless an explicit count ("N kordne" / "N service units")
// is present. Detection feeds destination routing and reporting only; it
// never alters the extracted record.

var dashVariants = strings.NewReplacer("–", "-", "—", "-", "−", "-")

var (
	etDigitalMaturity = regexp.MustCompile(`(?i)Digik[uü]psuse hindamine`)
	etAIConsultancy   = regexp.MustCompile(`(?i)Tehisintellekti otstarbekuse nõustamine`)
	etAICount         = regexp.MustCompile(`Projektipõhine AI nõustamine:\s*(\d+)\s*kordne`)
	etPreAccelerator  = regexp.MustCompile(`(?i)AIRE (eel)?kiirendi`)
	etFundingCount    = regexp.MustCompile(`Finantseerimise nõustamine:\s*(\d+)\s*kordne`)
	etPrivateFunding  = regexp.MustCompile(`(?i)Finantseerimise nõustamine.*Erakapitali kaasamine`)
	etPublicMeasures  = regexp.MustCompile(`(?i)Finantseerimise nõustamine.*Avalikud meetmed`)
	etRoboticsCount   = regexp.MustCompile(`(?i)Robotiseerimise nõustamine:\s*(\d+)\s*kordne`)
	etRobotics        = regexp.MustCompile(`(?i)Robotiseerimise (otstarbekuse )?nõustamine`)

	enDigitalMaturity = regexp.MustCompile(`(?i)Digital maturity assessment`)
	enAIConsultancy   = regexp.MustCompile(`(?i)AI suitability assessment`)
	enAICount         = regexp.MustCompile(`(?i)Project-based AI consultancy:\s*(\d+)\s*service units`)
	enRoboticsCount   = regexp.MustCompile(`(?i)Robotics consultancy\s*(\d+)\s*service units`)
	enRobotics        = regexp.MustCompile(`(?i)Robotics consultancy`)
	enPrivateFunding  = regexp.MustCompile(`(?i)Finding Sources of funding\s*-\s*Private capital`)
	enPrivateCount    = regexp.MustCompile(`(?i)Finding Sources of funding\s*-\s*Private capital.*?(\d+)\s*service units`)
	enPublicMeasures  = regexp.MustCompile(`(?i)Finding Sources of funding\s*-\s*Public measures`)
	enPublicCount     = regexp.MustCompile(`(?i)Finding Sources of funding\s*-\s*Public measures.*?(\d+)\s*service units`)
)

// DetectServices scans the text for the service categories of the intake
// forms and returns per-service unit counts. Unsupported locales return an
// empty map.
func DetectServices(text, locale string) map[models.Service]int {
	flat := dashVariants.Replace(strings.Join(strings.Fields(text), " "))
	counts := make(map[models.Service]int)

	switch locale {
	case "et":
		if etDigitalMaturity.MatchString(flat) {
			counts[models.ServiceDigitalMaturity] = 1
		}
		if etAIConsultancy.MatchString(flat) {
			counts[models.ServiceAIConsultancy] = countOr(etAICount, flat, 1)
		}
		if etPreAccelerator.MatchString(flat) {
			counts[models.ServicePreAccelerator] = 1
		}
		if n := countOr(etFundingCount, flat, 0); n > 0 {
			if etPrivateFunding.MatchString(flat) {
				counts[models.ServicePrivateFunding] = n
			}
			if etPublicMeasures.MatchString(flat) {
				counts[models.ServicePublicMeasures] = n
			}
		} else {
			if etPrivateFunding.MatchString(flat) {
				counts[models.ServicePrivateFunding] = 1
			}
			if etPublicMeasures.MatchString(flat) {
				counts[models.ServicePublicMeasures] = 1
			}
		}
		if n := countOr(etRoboticsCount, flat, 0); n > 0 {
			counts[models.ServiceRobotics] = n
		} else if etRobotics.MatchString(flat) {
			counts[models.ServiceRobotics] = 1
		}
	case "en":
		if enDigitalMaturity.MatchString(flat) {
			counts[models.ServiceDigitalMaturity] = 1
		}
		if enAIConsultancy.MatchString(flat) {
			counts[models.ServiceAIConsultancy] = countOr(enAICount, flat, 1)
		}
		if n := countOr(enRoboticsCount, flat, 0); n > 0 {
			counts[models.ServiceRobotics] = n
		} else if enRobotics.MatchString(flat) {
			counts[models.ServiceRobotics] = 1
		}
		if enPrivateFunding.MatchString(flat) {
			counts[models.ServicePrivateFunding] = countOr(enPrivateCount, flat, 1)
		}
		if enPublicMeasures.MatchString(flat) {
			counts[models.ServicePublicMeasures] = countOr(enPublicCount, flat, 1)
		}
	}

	return counts
}

func countOr(re *regexp.Regexp, text string, fallback int) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	n, err := strconv.Atoi(m[len(m)-1])
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
