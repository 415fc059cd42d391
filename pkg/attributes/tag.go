package attributes

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatTagName normalizes a descriptor into its display form: surrounding
// space trimmed, runs of whitespace collapsed, every word lowercased with its
// first letter upper-cased. "  dark   BROWN " becomes "Dark Brown".
//
// Casing is locale independent so the result is identical on every host.
func FormatTagName(tag string) string {
	// A Caser keeps state and must not be shared between goroutines.
	lower := cases.Lower(language.Und).String(tag)

	words := strings.Fields(lower)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError {
			continue
		}
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
