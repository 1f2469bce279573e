// Package normalize performs locale-aware cleanup of raw message text before
// field extraction. It never fails: input it cannot repair degrades to a
// best-effort pass-through with a low-confidence flag for the extractor.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Result is the normalizer output. LowConfidence marks input that required a
// lossy repair; the extractor carries it onto the record.
type Result struct {
	Text          string
	LowConfidence bool
}

// mojibake maps UTF-8-over-Latin-1 double encodings of Estonian diacritics
// back to the intended characters. Intake mail regularly arrives this way
// from legacy senders.
var mojibake = strings.NewReplacer(
	"Ã¤", "ä", "Ã„", "Ä",
	"Ã¶", "ö", "Ã–", "Ö",
	"Ãµ", "õ", "Ã", "Õ",
	"Ã¼", "ü", "Ã", "Ü",
	"Å¡", "š", "Å ", "Š",
	"Å¾", "ž", "Å½", "Ž",
)

var (
	// dd.mm.yyyy or dd/mm/yyyy → yyyy-mm-dd, the one canonical date form the
	// rest of the pipeline understands.
	dateToken = regexp.MustCompile(`\b(\d{2})[./](\d{2})[./](\d{4})\b`)

	spaceRun   = regexp.MustCompile(`[ \t]{2,}`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans raw text for the given locale hint. The repair table is
// specific to the Estonian locale; an explicit "en" hint skips it. The
// function is idempotent: normalizing already-normalized text is a no-op.
func Normalize(raw, localeHint string) Result {
	res := Result{Text: raw}

	if !utf8.ValidString(res.Text) {
		res.Text = strings.ToValidUTF8(res.Text, "")
		res.LowConfidence = true
	}

	if localeHint != "en" {
		res.Text = mojibake.Replace(res.Text)
	}
	res.Text = norm.NFC.String(res.Text)

	res.Text = strings.ReplaceAll(res.Text, "\r\n", "\n")
	res.Text = strings.ReplaceAll(res.Text, "\r", "\n")
	res.Text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == ' ' {
			return ' '
		}
		return r
	}, res.Text)

	res.Text = dateToken.ReplaceAllString(res.Text, "$3-$2-$1")

	res.Text = spaceRun.ReplaceAllString(res.Text, " ")
	lines := strings.Split(res.Text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	res.Text = strings.Join(lines, "\n")
	res.Text = newlineRun.ReplaceAllString(res.Text, "\n\n")
	res.Text = strings.TrimSpace(res.Text)

	return res
}
