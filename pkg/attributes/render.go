package attributes

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Sub-types that read naturally without a qualifier. They are left out of
// rendered text, so "personality.traits" renders as "Personality: ...".
var defaultSubTypes = map[string]bool{
	"appearance": true,
	"traits":     true,
	"scents":     true,
}

// AttributeToText renders an AttributeMap as display text, for example
// "Hair (color): Brown, Long; Personality: Brave". Entries are ordered by key.
//
// This is a lossy inverse of ParseAttributeText: default sub-types are
// dropped from the output.
func AttributeToText(m AttributeMap) string {
	parts := make([]string, 0, len(m))
	for _, key := range m.Keys() {
		if line := renderEntry(key, strings.Join(nonEmpty(m[key]), ", ")); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "; ")
}

// ValueToText renders a loosely typed value, typically decoded from JSON.
// Attribute-shaped maps use the AttributeToText format; entries that are not
// string lists are coerced rather than rejected.
func ValueToText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case AttributeMap:
		return AttributeToText(val)
	case map[string][]string:
		return AttributeToText(AttributeMap(val))
	case []string:
		return strings.Join(nonEmpty(val), ", ")
	case []any:
		return strings.Join(coerceList(val), ", ")
	case map[string]any:
		return renderLooseMap(val)
	case fmt.Stringer:
		return val.String()
	default:
		return jsonString(val)
	}
}

func renderLooseMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		var values string
		switch val := m[key].(type) {
		case []any:
			values = strings.Join(coerceList(val), ", ")
		case []string:
			values = strings.Join(nonEmpty(val), ", ")
		case string:
			values = strings.TrimSpace(val)
		default:
			values = jsonString(val)
		}
		if line := renderEntry(key, values); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "; ")
}

func renderEntry(key, values string) string {
	if values == "" {
		return ""
	}
	category, subType := SplitKey(key)
	label := FormatTagName(strings.ReplaceAll(category, "_", " "))
	if label == "" {
		label = FormatTagName(defaultCategory)
	}
	if subType != "" && !defaultSubTypes[subType] {
		label += " (" + strings.ReplaceAll(subType, "_", " ") + ")"
	}
	return label + ": " + values
}

func coerceList(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		var s string
		if str, ok := item.(string); ok {
			s = strings.TrimSpace(str)
		} else {
			s = jsonString(item)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func jsonString(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
