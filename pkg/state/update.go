package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jwebster45206/story-characters/pkg/attributes"
)

// DefaultUpdateContext is recorded when the caller gives no reason for an update.
const DefaultUpdateContext = "Updated during adventure"

// StateUpdate is one timestamped change to a character instance field.
type StateUpdate struct {
	Field     string    `json:"field"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context,omitempty"`
}

// StateUpdateMap holds the current update for each field, keyed by field name.
type StateUpdateMap map[string]StateUpdate

// NewStateUpdate stamps a field update with now and a context note.
func NewStateUpdate(field string, value any, note string, now time.Time) StateUpdate {
	if note == "" {
		note = DefaultUpdateContext
	}
	return StateUpdate{
		Field:     field,
		Value:     value,
		Timestamp: now.UTC(),
		Context:   note,
	}
}

// BuildStateUpdates creates one StateUpdate per entry of values, all sharing
// the same timestamp and note.
func BuildStateUpdates(values map[string]any, note string, now time.Time) StateUpdateMap {
	updates := make(StateUpdateMap, len(values))
	for field, value := range values {
		updates[field] = NewStateUpdate(field, value, note, now)
	}
	return updates
}

// Merge applies updates over existing and returns a new map. Each field is
// overwritten by its latest update (last write wins); list values are not
// unioned because an update describes the field's current value.
//
// A field's timestamp always increases: if the clock did not move forward
// since the previous write to that field, the new update is stamped 1ns later.
func Merge(existing, updates StateUpdateMap) StateUpdateMap {
	merged := make(StateUpdateMap, len(existing)+len(updates))
	maps.Copy(merged, existing)

	for field, u := range updates {
		if u.Field == "" {
			u.Field = field
		}
		if prev, ok := merged[field]; ok && !u.Timestamp.After(prev.Timestamp) {
			u.Timestamp = prev.Timestamp.Add(time.Nanosecond)
		}
		merged[field] = u
	}
	return merged
}

// Fields returns the field names in sorted order.
func (m StateUpdateMap) Fields() []string {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// HasValue reports whether the update carries a meaningful value. nil, false,
// empty strings, zero or NaN numbers and empty collections do not.
func (u StateUpdate) HasValue() bool {
	switch v := u.Value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}

	rv := reflect.ValueOf(u.Value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return !rv.IsZero()
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// attributeFields are instance fields whose values are attribute maps.
var attributeFields = map[string]bool{
	"appearance":    true,
	"personality":   true,
	"scents_aromas": true,
	"scents":        true,
}

// FormatValue renders the update's value for a prompt. Attribute fields use
// the attribute renderer; other fields render strings as-is and anything
// else as JSON.
func (u StateUpdate) FormatValue() string {
	if attributeFields[u.Field] {
		return attributes.ValueToText(u.Value)
	}
	switch v := u.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case attributes.AttributeMap:
		return attributes.AttributeToText(v)
	}
	b, err := json.Marshal(u.Value)
	if err != nil {
		return fmt.Sprint(u.Value)
	}
	return string(b)
}
