package attributes

import (
	"regexp"
	"strings"
)

// keyMarker matches "hair:", "Hair Color —", "eyes - " and the renderer's
// "Feet (aroma):" form. A marker starts the text or follows a separator, and
// the key is limited to three words so ordinary prose is not taken for a key.
var keyMarker = regexp.MustCompile(
	`(?i)(?:^|[;,.\n])[ \t]*` +
		`([a-z][a-z'_]*(?:[ \t]+[a-z][a-z'_]*){0,2})` +
		`[ \t]*(?:\(([^()\n]{1,40})\))?` +
		`[ \t]*(?::|—|–|[ \t]-[ \t])`,
)

// keyToken is one detected key marker and the span of text holding its
// values: [SpanStart, SpanEnd).
type keyToken struct {
	Key       string
	Hint      string
	SpanStart int
	SpanEnd   int
}

// tokenizeKeys finds every key marker in text. Spans run from the end of a
// marker to the start of the next one, so values may themselves contain
// commas or colons without being split across keys.
func tokenizeKeys(text string) []keyToken {
	matches := keyMarker.FindAllStringSubmatchIndex(text, -1)
	tokens := make([]keyToken, 0, len(matches))
	for i, m := range matches {
		tok := keyToken{
			Key:       text[m[2]:m[3]],
			SpanStart: m[1],
			SpanEnd:   len(text),
		}
		if m[4] >= 0 {
			tok.Hint = text[m[4]:m[5]]
		}
		if i+1 < len(matches) {
			tok.SpanEnd = matches[i+1][0]
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// span returns the token's value text with separators trimmed from both ends.
func (t keyToken) span(text string) string {
	if t.SpanStart >= t.SpanEnd {
		return ""
	}
	return strings.Trim(text[t.SpanStart:t.SpanEnd], " \t\r\n,;.")
}
