package attributes

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// KeywordTable is a labelled keyword list. Tables are evaluated in order and
// the first one containing a keyword present in the input wins.
type KeywordTable struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Profile is the parsing configuration for one AttributeType.
type Profile struct {
	FallbackKey    string         `yaml:"fallback_key"`
	DefaultSubType string         `yaml:"default_subtype"`
	SubTypes       []KeywordTable `yaml:"subtypes"`
	Categories     []KeywordTable `yaml:"categories"`
}

var profiles = mustLoadProfiles(keywordsYAML)

// genericProfile applies to attribute types without a profile of their own.
var genericProfile = Profile{
	FallbackKey:    "general.attribute",
	DefaultSubType: "attribute",
}

func mustLoadProfiles(data []byte) map[AttributeType]Profile {
	p, err := loadProfiles(data)
	if err != nil {
		panic(err)
	}
	return p
}

func loadProfiles(data []byte) (map[AttributeType]Profile, error) {
	var raw map[string]Profile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode keyword profiles: %w", err)
	}

	out := make(map[AttributeType]Profile, len(raw))
	for name, p := range raw {
		t, err := ParseAttributeType(name)
		if err != nil {
			return nil, fmt.Errorf("keyword profiles: %w", err)
		}
		if p.FallbackKey == "" || p.DefaultSubType == "" {
			return nil, fmt.Errorf("keyword profile %s: fallback_key and default_subtype are required", name)
		}
		for _, tables := range [][]KeywordTable{p.SubTypes, p.Categories} {
			for i := range tables {
				if tables[i].Label == "" {
					return nil, fmt.Errorf("keyword profile %s: table %d has no label", name, i)
				}
				for j, kw := range tables[i].Keywords {
					tables[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
				}
			}
		}
		out[t] = p
	}
	return out, nil
}

// ProfileFor returns the keyword profile for t. Unknown types get a generic
// profile with no tables.
func ProfileFor(t AttributeType) Profile {
	if p, ok := profiles[t]; ok {
		return p
	}
	return genericProfile
}

// haystack is a normalized, space padded word string used for whole word
// keyword lookups. " long brown " matches "brown" but "tired" never matches
// "red".
type haystack string

func newHaystack(words ...string) haystack {
	joined := strings.ToLower(strings.Join(words, " "))
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'' {
			return r
		}
		return ' '
	}, joined)
	return haystack(" " + strings.Join(strings.Fields(cleaned), " ") + " ")
}

func (h haystack) has(keyword string) bool {
	return strings.Contains(string(h), " "+keyword+" ")
}

// firstMatch returns the label of the first table with a keyword in h.
func firstMatch(tables []KeywordTable, h haystack) (string, bool) {
	for _, table := range tables {
		if table.matches(h) {
			return table.Label, true
		}
	}
	return "", false
}

func (t KeywordTable) matches(h haystack) bool {
	for _, kw := range t.Keywords {
		if h.has(kw) {
			return true
		}
	}
	return false
}
