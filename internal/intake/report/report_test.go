package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"intake/internal/intake/models"
)

func testConfig() Config {
	return Config{
		Recipients: map[models.Selector][]string{
			"main":                 {"main-team@example.com"},
			"robotics-consultancy": {"robots@example.com", "lead@example.com"},
		},
		CC:                "cc@example.com",
		DefaultRecipients: []string{"fallback@example.com"},
		MaxRawBody:        200,
	}
}

func TestBuildSuccess(t *testing.T) {
	r := New(testConfig())

	req := r.Build(models.Outcome{
		MessageID:   "msg-1",
		Status:      models.OutcomeSuccess,
		Selector:    "robotics-consultancy",
		Op:          models.OpCreate,
		StoreID:     "abc-123",
		SequenceKey: 17,
		CompanyName: "Acme AS",
	})

	assert.Equal(t, []string{"robots@example.com", "lead@example.com"}, req.Recipients)
	assert.Equal(t, "cc@example.com", req.CC)
	assert.Equal(t, "msg-1", req.MessageID)
	assert.Equal(t, "Edu: Ettevõte Acme AS edukalt lisatud andmebaasi robotics-consultancy", req.Subject)
	assert.Contains(t, req.Body, "Acme AS")
	assert.Contains(t, req.Body, "jrk 17")
	assert.NotContains(t, req.Body, "uuendati")
}

func TestBuildSuccessUpdateNotesExistingEntry(t *testing.T) {
	r := New(testConfig())

	req := r.Build(models.Outcome{
		Status:      models.OutcomeSuccess,
		Selector:    "main",
		Op:          models.OpUpdate,
		CompanyName: "Acme AS",
	})
	assert.Contains(t, req.Body, "Olemasolev kirje uuendati.")
}

func TestBuildFailure(t *testing.T) {
	r := New(testConfig())

	req := r.Build(models.Outcome{
		MessageID: "msg-2",
		Status:    models.OutcomeFailure,
		Selector:  "main",
		Reason:    "validation failed (missing: companyName)",
		Partial: models.ExtractedRecord{
			RegistrationCode: "EE123456",
			Email:            "info@acme.ee",
			Participants:     []string{"Mari Maasikas"},
		},
		RawBody: "Registrikood: EE123456",
	})

	assert.Equal(t, []string{"main-team@example.com"}, req.Recipients)
	assert.Equal(t, "Viga registrikoodiga: EE123456 andmebaasis main", req.Subject)
	assert.Contains(t, req.Body, "Ettevõtte nimi: -")
	assert.Contains(t, req.Body, "E-posti aadress: info@acme.ee")
	assert.Contains(t, req.Body, "Osaleja nimi: Mari Maasikas")
	assert.Contains(t, req.Body, "validation failed (missing: companyName)")
	assert.Contains(t, req.Body, "Algne sõnum:")
}

func TestBuildFailureWithoutRegistrationCode(t *testing.T) {
	r := New(testConfig())

	req := r.Build(models.Outcome{
		Status: models.OutcomeFailure,
		Reason: "extraction produced no fields",
	})
	assert.Equal(t, "Viga registrikoodiga: teadmata", req.Subject)
	assert.Equal(t, []string{"fallback@example.com"}, req.Recipients)
}

func TestUnknownSelectorFallsBackToDefaults(t *testing.T) {
	r := New(testConfig())

	req := r.Build(models.Outcome{
		Status:      models.OutcomeSuccess,
		Selector:    "pre-accelerator",
		CompanyName: "Acme AS",
	})
	assert.Equal(t, []string{"fallback@example.com"}, req.Recipients)
}

func TestNotesAreListed(t *testing.T) {
	r := New(testConfig())

	req := r.Build(models.Outcome{
		Status:      models.OutcomeSuccess,
		Selector:    "main",
		CompanyName: "Acme AS",
		Notes:       []string{"tundmatu riigiprefiks XX, asukoht määramata"},
	})
	assert.Contains(t, req.Body, "Märkused:")
	assert.Contains(t, req.Body, "tundmatu riigiprefiks XX")
}

func TestRawBodyTruncation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRawBody = 10
	r := New(cfg)

	req := r.Build(models.Outcome{
		Status:  models.OutcomeFailure,
		Reason:  "x",
		RawBody: strings.Repeat("a", 50),
	})
	assert.Contains(t, req.Body, strings.Repeat("a", 10)+"\n[... kärbitud]")
	assert.NotContains(t, req.Body, strings.Repeat("a", 11))

	cfg.MaxRawBody = 0
	r = New(cfg)
	req = r.Build(models.Outcome{Status: models.OutcomeFailure, Reason: "x", RawBody: "raw"})
	assert.NotContains(t, req.Body, "Algne sõnum")
}
