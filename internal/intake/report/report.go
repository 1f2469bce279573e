// Package report turns pipeline outcomes into operator notifications. Body
// texts stay in Estonian to match what the destination teams expect.
package report

import (
	"fmt"
	"strings"

	"intake/internal/intake/models"
	pstrings "intake/pkg/platform/strings"
)

// Config maps destinations to their responsible recipients.
type Config struct {
	// Recipients lists the responsible addresses per destination database.
	Recipients map[models.Selector][]string

	// CC is always copied on every notification when set.
	CC string

	// DefaultRecipients receives notifications for destinations without a
	// responsible list of their own.
	DefaultRecipients []string

	// MaxRawBody bounds how much of the original message body a failure
	// notification carries. Zero means no raw body at all.
	MaxRawBody int
}

type Reporter struct {
	cfg Config
}

func New(cfg Config) *Reporter {
	return &Reporter{cfg: cfg}
}

// Build renders the notification for a finished message. Success and failure
// use distinct templates; failures carry the partial record and reason so an
// operator can enter the data manually without digging up the original mail.
func (r *Reporter) Build(outcome models.Outcome) models.NotificationRequest {
	req := models.NotificationRequest{
		Recipients: r.recipientsFor(outcome.Selector),
		CC:         r.cfg.CC,
		MessageID:  outcome.MessageID,
	}

	if outcome.Status == models.OutcomeSuccess {
		req.Subject = fmt.Sprintf("Edu: Ettevõte %s edukalt lisatud andmebaasi %s",
			outcome.CompanyName, outcome.Selector)
		req.Body = r.successBody(outcome)
		return req
	}

	code := outcome.Partial.RegistrationCode
	if code == "" {
		code = "teadmata"
	}
	req.Subject = fmt.Sprintf("Viga registrikoodiga: %s", code)
	if outcome.Selector != "" {
		req.Subject += fmt.Sprintf(" andmebaasis %s", outcome.Selector)
	}
	req.Body = r.failureBody(outcome, code)
	return req
}

func (r *Reporter) recipientsFor(selector models.Selector) []string {
	if recipients := pstrings.DedupeAndTrim(r.cfg.Recipients[selector]); len(recipients) > 0 {
		return recipients
	}
	return pstrings.DedupeAndTrim(r.cfg.DefaultRecipients)
}

func (r *Reporter) successBody(outcome models.Outcome) string {
	var b strings.Builder
	b.WriteString("Tere,\n\n")
	fmt.Fprintf(&b, "Ettevõtte andmed on edukalt töödeldud ja lisatud andmebaasi %s.\n\n", outcome.Selector)
	fmt.Fprintf(&b, "Ettevõte: %s\n", outcome.CompanyName)
	fmt.Fprintf(&b, "Kirje: %s (jrk %d)\n", outcome.StoreID, outcome.SequenceKey)
	if outcome.Op == models.OpUpdate {
		b.WriteString("Olemasolev kirje uuendati.\n")
	}
	writeNotes(&b, outcome.Notes)
	b.WriteString("\nParimate soovidega,\nTehniline tugi\nAIRE")
	return b.String()
}

func (r *Reporter) failureBody(outcome models.Outcome, code string) string {
	p := outcome.Partial

	var b strings.Builder
	b.WriteString("Tere,\n\n")
	b.WriteString("Kahjuks ilmnes viga ettevõtte andmete töötlemisel.\n\n")
	b.WriteString("Ettevõtte andmed:\n")
	b.WriteString("----------------------------------------\n")
	fmt.Fprintf(&b, "Ettevõtte nimi: %s\n", orDash(p.CompanyName))
	fmt.Fprintf(&b, "E-posti aadress: %s\n", orDash(p.Email))
	fmt.Fprintf(&b, "Telefoni number: %s\n", orDash(p.Phone))
	fmt.Fprintf(&b, "Registrikood: %s\n", code)
	fmt.Fprintf(&b, "Tööstusharu: %s\n", orDash(p.Industry))
	fmt.Fprintf(&b, "Osaleja nimi: %s\n", orDash(strings.Join(p.Participants, ", ")))
	b.WriteString("----------------------------------------\n\n")
	fmt.Fprintf(&b, "Viga:\n%s\n", outcome.Reason)
	writeNotes(&b, outcome.Notes)
	if raw := r.truncateRaw(outcome.RawBody); raw != "" {
		fmt.Fprintf(&b, "\nAlgne sõnum:\n%s\n", raw)
	}
	b.WriteString("\nPalun kontrollige andmeid ja sisestage need käsitsi.\n")
	b.WriteString("\nLugupidamisega,\nTehniline tugi\nAIRE")
	return b.String()
}

func (r *Reporter) truncateRaw(raw string) string {
	if r.cfg.MaxRawBody <= 0 || raw == "" {
		return ""
	}
	if len(raw) <= r.cfg.MaxRawBody {
		return raw
	}
	return raw[:r.cfg.MaxRawBody] + "\n[... kärbitud]"
}

func writeNotes(b *strings.Builder, notes []string) {
	if len(notes) == 0 {
		return
	}
	b.WriteString("\nMärkused:\n")
	for _, note := range notes {
		fmt.Fprintf(b, "- %s\n", note)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
