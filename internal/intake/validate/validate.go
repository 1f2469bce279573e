// Package validate checks extracted records for completeness and
// consistency. A record that passes becomes a ValidatedRecord; anything else
// produces a Failure that routes the message to the failure path with the
// partial record attached.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"intake/internal/intake/models"
)

// Failure lists what kept a record from validating. Missing and malformed
// are kept apart: a syntactically plausible code with a bad check digit is
// surfaced to the operator differently from an absent one.
type Failure struct {
	MissingFields   []string
	MalformedFields []string
}

func (f *Failure) Error() string {
	var parts []string
	if len(f.MissingFields) > 0 {
		parts = append(parts, "missing: "+strings.Join(f.MissingFields, ", "))
	}
	if len(f.MalformedFields) > 0 {
		parts = append(parts, "malformed: "+strings.Join(f.MalformedFields, ", "))
	}
	return "validation failed (" + strings.Join(parts, "; ") + ")"
}

// Fields returns every failing field name, missing first.
func (f *Failure) Fields() []string {
	out := make([]string, 0, len(f.MissingFields)+len(f.MalformedFields))
	out = append(out, f.MissingFields...)
	out = append(out, f.MalformedFields...)
	return out
}

// Validate enforces the required-field and format rules. companyName and
// registrationCode are required; participants are normalized to an empty
// slice so absence and emptiness are indistinguishable downstream.
func Validate(rec models.ExtractedRecord, receivedAt time.Time) (models.ValidatedRecord, *Failure) {
	var f Failure

	if rec.CompanyName == "" {
		f.MissingFields = append(f.MissingFields, "companyName")
	}
	switch {
	case rec.RegistrationCode == "":
		f.MissingFields = append(f.MissingFields, "registrationCode")
	default:
		if err := checkRegistrationCode(rec.RegistrationCode); err != nil {
			detail := "pattern"
			if errors.Is(err, errCodeChecksum) {
				detail = "check digit"
			}
			f.MalformedFields = append(f.MalformedFields, fmt.Sprintf("registrationCode (%s)", detail))
		}
	}

	if rec.Email != "" && !govalidator.IsEmail(rec.Email) {
		f.MalformedFields = append(f.MalformedFields, "email")
	}

	if len(f.MissingFields) > 0 || len(f.MalformedFields) > 0 {
		return models.ValidatedRecord{}, &f
	}

	participants := rec.Participants
	if participants == nil {
		participants = []string{}
	}

	return models.ValidatedRecord{
		CompanyName:      rec.CompanyName,
		RegistrationCode: rec.RegistrationCode,
		Email:            rec.Email,
		Phone:            rec.Phone,
		Industry:         rec.Industry,
		Participants:     participants,
		RawText:          rec.RawText,
		ReceivedAt:       receivedAt,
	}, nil
}
