package attributes

import (
	"regexp"
	"slices"
	"strings"
)

var (
	valueSeparator = regexp.MustCompile(`[,;]`)

	// Filler words authors add to scent descriptions ("musky scent").
	fillerWords = regexp.MustCompile(`(?i)\b(?:scent|smell|aroma|fragrance|odor|perfume)\b`)
)

// ParseValues splits a comma or semicolon delimited string into normalized
// descriptors. Empty pieces, and pieces that only held filler words, are
// dropped. Input order is preserved.
func ParseValues(raw string) []string {
	values := make([]string, 0)
	for _, piece := range valueSeparator.Split(raw, -1) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		piece = strings.TrimSpace(fillerWords.ReplaceAllString(piece, ""))
		if piece == "" {
			continue
		}
		if v := FormatTagName(piece); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// appendUnique appends each value not already present in dst.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
