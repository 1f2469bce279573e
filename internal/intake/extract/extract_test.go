package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/intake/models"
	"intake/internal/intake/normalize"
)

func extractText(t *testing.T, text string) models.ExtractedRecord {
	t.Helper()
	return Extract(normalize.Normalize(text, "et"))
}

func TestExtract(t *testing.T) {
	t.Run("minimal english form", func(t *testing.T) {
		rec := extractText(t, "Company: Acme OÜ\nReg.Code: EE123456\n")
		assert.Equal(t, "Acme OÜ", rec.CompanyName)
		assert.Equal(t, "EE123456", rec.RegistrationCode)
		assert.Empty(t, rec.Participants)
	})

	t.Run("full estonian form", func(t *testing.T) {
		rec := extractText(t, `Ettevõtte või organisatsiooni nimi: Aktsiaselts Tartu Mill
Registrikood: EE12345678
E-post: info@tartumill.ee
Telefoni number: +372 5555 1234
Tööstusharu: Toiduainetööstus
Osaleja nimi: Mari Maasikas
Osaleja nimi: Jaan   Tamm`)
		assert.Equal(t, "Tartu Mill AS", rec.CompanyName)
		assert.Equal(t, "EE12345678", rec.RegistrationCode)
		assert.Equal(t, "info@tartumill.ee", rec.Email)
		assert.Equal(t, "+372 5555 1234", rec.Phone)
		assert.Equal(t, "Toiduainetööstus", rec.Industry)
		assert.Equal(t, []string{"Mari Maasikas", "Jaan Tamm"}, rec.Participants)
	})

	t.Run("value on next line when label stands alone", func(t *testing.T) {
		rec := extractText(t, "Registrikood:\n\n12345678\nE-post:\nkontakt@firma.ee")
		assert.Equal(t, "EE12345678", rec.RegistrationCode)
		assert.Equal(t, "kontakt@firma.ee", rec.Email)
	})

	t.Run("registration code rule ordering: prefixed form beats bare digits", func(t *testing.T) {
		rec := extractText(t, "Registrikood: EE123456 (varem 654321)")
		assert.Equal(t, "EE123456", rec.RegistrationCode)
	})

	t.Run("bare digits are canonicalized with the default jurisdiction", func(t *testing.T) {
		rec := extractText(t, "Registrikood: 12345678")
		assert.Equal(t, "EE12345678", rec.RegistrationCode)
	})

	t.Run("first label occurrence wins", func(t *testing.T) {
		rec := extractText(t, "Company: First OÜ\nCompany: Second OÜ")
		assert.Equal(t, "First OÜ", rec.CompanyName)
	})

	t.Run("unmatched fields stay absent", func(t *testing.T) {
		rec := extractText(t, "Tere,\n\nsoovime registreeruda teenusele.")
		assert.Empty(t, rec.CompanyName)
		assert.Empty(t, rec.RegistrationCode)
		assert.Nil(t, rec.Participants)
	})

	t.Run("email is picked out of surrounding text", func(t *testing.T) {
		rec := extractText(t, "E-mail: palun kirjutage mari@firma.ee igal ajal")
		assert.Equal(t, "mari@firma.ee", rec.Email)
	})

	t.Run("low confidence flag carries through", func(t *testing.T) {
		rec := Extract(normalize.Normalize("Company: Acme \xff OÜ", "et"))
		assert.True(t, rec.LowConfidence)
		assert.Equal(t, "Acme OÜ", rec.CompanyName)
	})
}

func TestNormalizeCompanyName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Acme OÜ", "Acme OÜ"},
		{"OÜ Acme", "Acme OÜ"},
		{"Aktsiaselts Tartu Mill", "Tartu Mill AS"},
		{"osaühing Põhjala", "Põhjala OÜ"},
		{"Sihtasutus Teadus", "Teadus SAS"},
		{"mittetulundusühing Abi", "Abi MTÜ"},
		{"Acme, Grupp AS", "Acme Grupp AS"},
		{"  Acme   Grupp  ", "Acme Grupp"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, normalizeCompanyName(c.in), "input %q", c.in)
	}
}

func TestDetectServices(t *testing.T) {
	t.Run("estonian categories with explicit counts", func(t *testing.T) {
		counts := DetectServices(`Valitud teenused:
Digiküpsuse hindamine
Tehisintellekti otstarbekuse nõustamine
Projektipõhine AI nõustamine: 3 kordne
Robotiseerimise nõustamine: 2 kordne`, "et")
		assert.Equal(t, 1, counts[models.ServiceDigitalMaturity])
		assert.Equal(t, 3, counts[models.ServiceAIConsultancy])
		assert.Equal(t, 2, counts[models.ServiceRobotics])
	})

	t.Run("estonian funding split shares one count", func(t *testing.T) {
		counts := DetectServices("Finantseerimise nõustamine: 2 kordne – Erakapitali kaasamine ja Avalikud meetmed", "et")
		assert.Equal(t, 2, counts[models.ServicePrivateFunding])
		assert.Equal(t, 2, counts[models.ServicePublicMeasures])
	})

	t.Run("english categories", func(t *testing.T) {
		counts := DetectServices(`Selected services:
Digital maturity assessment
Robotics consultancy 2 service units
Finding Sources of funding – Private capital, 1 service units`, "en")
		assert.Equal(t, 1, counts[models.ServiceDigitalMaturity])
		assert.Equal(t, 2, counts[models.ServiceRobotics])
		assert.Equal(t, 1, counts[models.ServicePrivateFunding])
	})

	t.Run("unsupported locale detects nothing", func(t *testing.T) {
		counts := DetectServices("Digiküpsuse hindamine", "de")
		require.Empty(t, counts)
	})
}

func TestDetectLocale(t *testing.T) {
	assert.Equal(t, "et", DetectLocale("Ettevõtte või organisatsiooni nimi: Acme\nRegistrikood: 123"))
	assert.Equal(t, "en", DetectLocale("Company or organization name: Acme\nRegistration code: 123"))
	assert.Equal(t, "", DetectLocale("hello"))
}
