package validate

import (
	"errors"
	"regexp"
)

// Registration codes are a two-letter jurisdiction prefix followed by 6-8
// digits. Eight-digit tails are full registry codes and carry a check digit:
// weighted sum of the first seven digits with weights 1..7 modulo 11; a
// remainder of 10 triggers a second pass with weights 3..9; a second 10
// collapses to 0. Shorter tails are legacy short forms validated by shape
// alone.
var codeShape = regexp.MustCompile(`^[A-Z]{2}(\d{6,8})$`)

var (
	errCodeFormat   = errors.New("registration code does not match the jurisdiction pattern")
	errCodeChecksum = errors.New("registration code check digit mismatch")
)

func checkRegistrationCode(code string) error {
	m := codeShape.FindStringSubmatch(code)
	if m == nil {
		return errCodeFormat
	}
	digits := m[1]
	if len(digits) < 8 {
		return nil
	}
	if checkDigit(digits[:7]) != int(digits[7]-'0') {
		return errCodeChecksum
	}
	return nil
}

func checkDigit(digits string) int {
	sum := 0
	for i, r := range digits {
		sum += int(r-'0') * (i + 1)
	}
	if d := sum % 11; d < 10 {
		return d
	}
	sum = 0
	for i, r := range digits {
		sum += int(r-'0') * (i + 3)
	}
	if d := sum % 11; d < 10 {
		return d
	}
	return 0
}
