package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := map[string]string{
		"en":              "en",
		"kh":              "km",
		"KH":              "km",
		"km":              "km",
		"km-KH":           "km",
		"en-US,en;q=0.9":  "en",
		"":                "en",
		"zz-not-a-locale": "en",
	}
	for in, want := range tests {
		assert.Equal(t, want, Resolve(in).String(), in)
	}
}

func TestNumerals(t *testing.T) {
	assert.Equal(t, "១២៣ of ៤៥", Numerals(Khmer, "123 of 45"))
	assert.Equal(t, "123", Numerals(English, "123"))
}
