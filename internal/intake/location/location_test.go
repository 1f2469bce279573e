package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t.Run("known prefixes", func(t *testing.T) {
		cases := map[string]string{
			"EE123456":   "Estonia",
			"EE12345678": "Estonia",
			"LV12345678": "Latvia",
			"LT1234567":  "Lithuania",
			"FI123456":   "Finland",
		}
		for code, want := range cases {
			tag, err := Resolve(code)
			assert.NoError(t, err, "code %q", code)
			assert.Equal(t, want, tag, "code %q", code)
		}
	})

	t.Run("unknown prefix is soft", func(t *testing.T) {
		for _, code := range []string{"XX123456", "DE999999", "1", ""} {
			tag, err := Resolve(code)
			assert.ErrorIs(t, err, ErrUnknownPrefix, "code %q", code)
			assert.Equal(t, Unknown, tag, "code %q", code)
		}
	})
}
