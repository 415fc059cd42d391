package attributes

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// Strategy identifies which extraction pass produced a parse result.
type Strategy string

const (
	StrategyNone          Strategy = "none"
	StrategyKeyValue      Strategy = "key_value"
	StrategyParenthetical Strategy = "parenthetical"
	StrategySentence      Strategy = "sentence"
	StrategyFallback      Strategy = "fallback"
)

var (
	parentheticalHint = regexp.MustCompile(`(?i)([^();.!?\n]+?)\s*\(\s*([a-z][a-z\s_'-]{0,40}?)\s*\)`)
	sentenceSeparator = regexp.MustCompile(`[.!?;]+`)
)

// stopWords are linking words dropped when pulling descriptors out of prose.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "nor": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "being": true, "am": true,
	"has": true, "have": true, "had": true, "having": true, "do": true, "does": true, "did": true,
	"with": true, "of": true, "to": true, "in": true, "on": true, "at": true, "by": true, "for": true,
	"from": true, "as": true, "into": true, "onto": true, "about": true, "over": true, "under": true,
	"up": true, "down": true, "out": true, "off": true, "than": true, "then": true, "if": true,
	"that": true, "this": true, "these": true, "those": true, "it": true, "its": true, "it's": true,
	"he": true, "she": true, "they": true, "him": true, "her": true, "hers": true, "his": true,
	"them": true, "their": true, "theirs": true, "i": true, "me": true, "my": true, "you": true,
	"your": true, "we": true, "our": true, "who": true, "whom": true, "whose": true, "which": true,
	"what": true, "when": true, "where": true, "while": true, "there": true, "here": true,
	"very": true, "quite": true, "rather": true, "really": true, "so": true, "too": true, "also": true,
	"just": true, "not": true, "no": true, "some": true, "any": true, "all": true, "each": true,
	"both": true, "like": true, "can": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "s": true, "one": true, "pair": true, "set": true,
}

// ParseAttributeText converts free-form descriptive text into an AttributeMap.
// It never fails: unstructured input ends up under the profile's fallback key
// and blank input yields an empty map.
func ParseAttributeText(text string, attributeType AttributeType) AttributeMap {
	m, _ := ParseDetailed(text, attributeType)
	return m
}

// ParseDetailed is ParseAttributeText that also reports which strategy
// produced the result. Strategies run in order and the first one that
// yields any attribute wins:
//
//  1. explicit "key: values" pairs
//  2. "values (category)" hints
//  3. keyword inference per sentence
//  4. the whole text as one value list under the fallback key
func ParseDetailed(text string, attributeType AttributeType) (AttributeMap, Strategy) {
	result := make(AttributeMap)
	if strings.TrimSpace(text) == "" {
		return result, StrategyNone
	}

	if parseKeyValuePairs(text, attributeType, result) {
		return result, StrategyKeyValue
	}
	if parseParentheticalHints(text, attributeType, result) {
		return result, StrategyParenthetical
	}
	if parseSentences(text, attributeType, result) {
		return result, StrategySentence
	}

	p := ProfileFor(attributeType)
	if values := ParseValues(text); len(values) > 0 {
		result[p.FallbackKey] = appendUnique(nil, values...)
		return result, StrategyFallback
	}
	return result, StrategyNone
}

// ParseAppearanceText parses physical description text.
func ParseAppearanceText(text string) AttributeMap {
	return ParseAttributeText(text, TypeAppearance)
}

// ParsePersonalityText parses personality description text.
func ParsePersonalityText(text string) AttributeMap {
	return ParseAttributeText(text, TypePersonality)
}

// ParseScentsText parses scent and aroma description text.
func ParseScentsText(text string) AttributeMap {
	return ParseAttributeText(text, TypeScentsAromas)
}

// ParseLocationText parses location feature text.
func ParseLocationText(text string) AttributeMap {
	return ParseAttributeText(text, TypeLocationFeatures)
}

// ParseSettingText parses setting element text.
func ParseSettingText(text string) AttributeMap {
	return ParseAttributeText(text, TypeSettingElements)
}

func parseKeyValuePairs(text string, t AttributeType, out AttributeMap) bool {
	found := false
	for _, tok := range tokenizeKeys(text) {
		values := ParseValues(tok.span(text))
		if len(values) == 0 {
			continue
		}

		key := CreateNamespacedKey(tok.Key, values, t)
		if hint := normalizeSubType(tok.Hint); hint != "" {
			key = NormalizeCategory(tok.Key) + "." + hint
		}
		out[key] = appendUnique(out[key], values...)
		found = true
	}
	return found
}

func parseParentheticalHints(text string, t AttributeType, out AttributeMap) bool {
	found := false
	for _, m := range parentheticalHint.FindAllStringSubmatch(text, -1) {
		values := ParseValues(m[1])
		if len(values) == 0 {
			continue
		}
		key := CreateNamespacedKey(m[2], values, t)
		out[key] = appendUnique(out[key], values...)
		found = true
	}
	return found
}

func parseSentences(text string, t AttributeType, out AttributeMap) bool {
	p := ProfileFor(t)
	if len(p.Categories) == 0 {
		return false
	}

	found := false
	for _, sentence := range sentenceSeparator.Split(text, -1) {
		words := sentenceWords(sentence)
		if len(words) == 0 {
			continue
		}
		h := newHaystack(words...)

		var descriptors []string
		for _, table := range p.Categories {
			if !table.matches(h) {
				continue
			}
			if descriptors == nil {
				descriptors = descriptiveWords(words, p)
			}
			if len(descriptors) == 0 {
				break
			}
			key := CreateNamespacedKey(table.Label, descriptors, t)
			out[key] = appendUnique(out[key], descriptors...)
			found = true
		}
	}
	return found
}

// sentenceWords lowercases a sentence and splits it into words, keeping
// inner hyphens and apostrophes ("shoulder-length", "it's").
func sentenceWords(sentence string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || r == '-' || r == '\'' {
			return unicode.ToLower(r)
		}
		return ' '
	}, sentence)

	words := make([]string, 0)
	for _, w := range strings.Fields(cleaned) {
		if w = strings.Trim(w, "-'"); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// descriptiveWords drops stop words and category keywords, returning the
// remaining words as normalized descriptors without duplicates.
func descriptiveWords(words []string, p Profile) []string {
	descriptors := make([]string, 0, len(words))
	for _, w := range words {
		if stopWords[w] || isCategoryKeyword(w, p) {
			continue
		}
		descriptors = appendUnique(descriptors, FormatTagName(w))
	}
	return descriptors
}

func isCategoryKeyword(word string, p Profile) bool {
	for _, table := range p.Categories {
		if slices.Contains(table.Keywords, word) {
			return true
		}
	}
	return false
}
