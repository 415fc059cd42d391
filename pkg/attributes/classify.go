package attributes

import (
	"regexp"
	"strings"
)

const defaultCategory = "general"

var (
	leadingArticle  = regexp.MustCompile(`^(?:the|a|an)\s+`)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s_]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	redundantSuffix = regexp.MustCompile(`_(?:size|style|color|colour)$`)
	underscoreRun   = regexp.MustCompile(`_+`)
)

var bodyPartPlurals = map[string]string{
	"foot":   "feet",
	"hand":   "hands",
	"eye":    "eyes",
	"arm":    "arms",
	"leg":    "legs",
	"toe":    "toes",
	"finger": "fingers",
}

// NormalizeCategory turns a free-form category label into a storage key:
// "The Hair Color" becomes "hair", "foot" becomes "feet". Empty results
// collapse to "general".
func NormalizeCategory(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = leadingArticle.ReplaceAllString(s, "")
	s = nonAlphanumeric.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	s = redundantSuffix.ReplaceAllString(s, "")

	if plural, ok := bodyPartPlurals[s]; ok {
		s = plural
	}
	if s == "" {
		return defaultCategory
	}
	return s
}

// InferSubType picks the semantic sub-type for a set of descriptor values
// using the keyword tables of the attribute type's profile. Tables are
// checked in profile order; the first match wins regardless of how many
// keywords other tables would match.
func InferSubType(values []string, attributeType AttributeType) string {
	p := ProfileFor(attributeType)
	if label, ok := firstMatch(p.SubTypes, newHaystack(values...)); ok {
		return label
	}
	return p.DefaultSubType
}

// CreateNamespacedKey builds the "category.subtype" key for a category and
// its values.
func CreateNamespacedKey(category string, values []string, attributeType AttributeType) string {
	return NormalizeCategory(category) + "." + InferSubType(values, attributeType)
}

// normalizeSubType cleans an explicit sub-type hint such as "(Hair Color)".
// It returns "" when nothing usable is left.
func normalizeSubType(hint string) string {
	s := strings.ToLower(strings.TrimSpace(hint))
	s = nonAlphanumeric.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(underscoreRun.ReplaceAllString(s, "_"), "_")
}
