package attributes

import (
	"fmt"
	"sort"
	"strings"
)

// AttributeMap holds structured descriptors keyed by a namespaced key of the
// form "category.subtype", e.g. "hair.color" or "feet.aroma".
// It serializes to JSON as an object of string arrays.
type AttributeMap map[string][]string

// AttributeType selects which keyword profile is used while parsing.
type AttributeType string

const (
	TypeAppearance       AttributeType = "appearance"
	TypePersonality      AttributeType = "personality"
	TypeScentsAromas     AttributeType = "scents_aromas"
	TypeLocationFeatures AttributeType = "location_features"
	TypeSettingElements  AttributeType = "setting_elements"
)

// AllTypes lists every known attribute type in declaration order.
var AllTypes = []AttributeType{
	TypeAppearance,
	TypePersonality,
	TypeScentsAromas,
	TypeLocationFeatures,
	TypeSettingElements,
}

// ParseAttributeType validates a user supplied attribute type name.
func ParseAttributeType(s string) (AttributeType, error) {
	t := AttributeType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown attribute type %q", s)
}

// Keys returns the map's keys in sorted order. Rendering and merging iterate
// in this order so output is stable between calls.
func (m AttributeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the map.
func (m AttributeMap) Clone() AttributeMap {
	if m == nil {
		return nil
	}
	out := make(AttributeMap, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// IsEmpty reports whether the map has no non-empty value lists.
func (m AttributeMap) IsEmpty() bool {
	for _, v := range m {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

// SplitKey splits a namespaced key into its category and sub-type. Keys
// without a dot are treated as a bare category.
func SplitKey(key string) (category, subType string) {
	category, subType, _ = strings.Cut(key, ".")
	return category, subType
}
