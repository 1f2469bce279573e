// Package location derives a location tag from the registration code's
// jurisdiction prefix. The mapping is pure and deterministic; an unknown
// prefix is a soft failure, so callers continue with the fallback tag and
// surface the event in the outcome notification.
package location

import (
	pkgerrors "intake/pkg/errors"
)

// Unknown is the fallback tag used when the prefix is outside the known set.
const Unknown = "unknown"

// ErrUnknownPrefix reports a prefix outside the known jurisdictions. It is
// soft by contract: Resolve still returns a usable tag alongside it.
var ErrUnknownPrefix = pkgerrors.New(pkgerrors.CodeUnknownLocation, "unknown registration code prefix")

var prefixes = map[string]string{
	"EE": "Estonia",
	"LV": "Latvia",
	"LT": "Lithuania",
	"FI": "Finland",
}

// Resolve maps the code's two-letter prefix to a location tag. On an unknown
// or absent prefix it returns (Unknown, ErrUnknownPrefix); it never hard-fails.
func Resolve(registrationCode string) (string, error) {
	if len(registrationCode) < 2 {
		return Unknown, ErrUnknownPrefix
	}
	tag, ok := prefixes[registrationCode[:2]]
	if !ok {
		return Unknown, ErrUnknownPrefix
	}
	return tag, nil
}
