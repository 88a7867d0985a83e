// Package locale maps the configured language onto the locales the
// dashboard renders.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

var (
	English = language.English
	Khmer   = language.Khmer

	supported = []language.Tag{English, Khmer}
	matcher   = language.NewMatcher(supported)
)

// Resolve picks the supported locale closest to code. "kh" is the country
// code the backend uses for Khmer. Unknown codes fall back to English.
func Resolve(code string) language.Tag {
	code = strings.TrimSpace(code)
	if strings.EqualFold(code, "kh") {
		return Khmer
	}
	tags, _, err := language.ParseAcceptLanguage(code)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}
	return supported[idx]
}

var khmerDigits = [10]rune{'០', '១', '២', '៣', '៤', '៥', '៦', '៧', '៨', '៩'}

// Numerals rewrites ASCII digits for the given locale.
func Numerals(tag language.Tag, s string) string {
	if tag != Khmer {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) * 3)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(khmerDigits[r-'0'])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
