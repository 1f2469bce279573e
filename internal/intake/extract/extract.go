// Package extract pulls typed fields out of normalized message text using an
// ordered rule set. Extraction is a pure function of the input text plus the
// static rules; unmatched fields stay absent rather than defaulted.
package extract

import (
	"regexp"
	"strings"

	"intake/internal/intake/models"
	"intake/internal/intake/normalize"
)

type fieldSpec struct {
	label *regexp.Regexp
	rules []valueRule
	get   func(rec *models.ExtractedRecord) string
	set   func(rec *models.ExtractedRecord, value string)
}

// fields in extraction order. Each field is filled at its first matching
// label occurrence; participants are the exception and accumulate every
// occurrence in document order.
var fields = []fieldSpec{
	{companyLabel, companyRules,
		func(r *models.ExtractedRecord) string { return r.CompanyName },
		func(r *models.ExtractedRecord, v string) { r.CompanyName = v }},
	{registrationLabel, registrationCodeRules,
		func(r *models.ExtractedRecord) string { return r.RegistrationCode },
		func(r *models.ExtractedRecord, v string) { r.RegistrationCode = v }},
	{emailLabel, emailRules,
		func(r *models.ExtractedRecord) string { return r.Email },
		func(r *models.ExtractedRecord, v string) { r.Email = v }},
	{phoneLabel, textRules,
		func(r *models.ExtractedRecord) string { return r.Phone },
		func(r *models.ExtractedRecord, v string) { r.Phone = v }},
	{industryLabel, textRules,
		func(r *models.ExtractedRecord) string { return r.Industry },
		func(r *models.ExtractedRecord, v string) { r.Industry = v }},
}

// Extract applies the rule set to normalized text. Field values come from
// the text after the label colon on the same line; when that is empty the
// next non-empty line is used, mirroring the upstream intake forms where
// values wrap onto their own line.
func Extract(res normalize.Result) models.ExtractedRecord {
	rec := models.ExtractedRecord{
		RawText:       res.Text,
		LowConfidence: res.LowConfidence,
	}

	lines := strings.Split(res.Text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)

		for _, f := range fields {
			loc := f.label.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if f.get(&rec) != "" {
				continue
			}
			if v := applyRules(f.rules, valueAt(line[loc[1]:], lines, i)); v != "" {
				f.set(&rec, v)
			}
		}

		if loc := participantLabel.FindStringIndex(line); loc != nil {
			if v := strings.TrimSpace(collapseSpaces(valueAt(line[loc[1]:], lines, i))); v != "" {
				rec.Participants = append(rec.Participants, v)
			}
		}
	}

	return rec
}

// valueAt returns the text after the label, falling back to the next
// non-empty line when the label stands alone at the end of its line.
func valueAt(rest string, lines []string, idx int) string {
	if v := strings.TrimSpace(rest); v != "" {
		return v
	}
	for i := idx + 1; i < len(lines); i++ {
		if v := strings.TrimSpace(lines[i]); v != "" {
			return v
		}
	}
	return ""
}
