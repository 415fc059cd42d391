package actor

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/pkg/attributes"
	"github.com/jwebster45206/story-characters/pkg/state"
)

// Character is a reusable character template authored by a user.
// It is never modified by an adventure; adventures work on a CharacterInstance.
type Character struct {
	ID           uuid.UUID               `json:"id"`
	UserID       string                  `json:"user_id,omitempty"`
	Name         string                  `json:"name"`
	Age          int                     `json:"age,omitempty"`
	Background   string                  `json:"background,omitempty"`
	Appearance   attributes.AttributeMap `json:"appearance,omitempty"`
	Personality  attributes.AttributeMap `json:"personality,omitempty"`
	ScentsAromas attributes.AttributeMap `json:"scents_aromas,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// CharacterInstance is the adventure-scoped copy of a Character. It diverges
// from its template over the adventure through StateUpdates and merged
// attributes.
type CharacterInstance struct {
	ID           uuid.UUID               `json:"id"`
	AdventureID  uuid.UUID               `json:"adventure_id"`
	CharacterID  uuid.UUID               `json:"character_id"`
	Name         string                  `json:"name"`
	Age          int                     `json:"age,omitempty"`
	Background   string                  `json:"background,omitempty"`
	Appearance   attributes.AttributeMap `json:"appearance,omitempty"`
	Personality  attributes.AttributeMap `json:"personality,omitempty"`
	ScentsAromas attributes.AttributeMap `json:"scents_aromas,omitempty"`
	StateUpdates state.StateUpdateMap    `json:"state_updates,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// Instance fields that hold attribute maps.
const (
	FieldAppearance   = "appearance"
	FieldPersonality  = "personality"
	FieldScentsAromas = "scents_aromas"
)

// AttributeTypeForField maps an instance field name to the attribute type
// used to parse text for it.
func AttributeTypeForField(field string) (attributes.AttributeType, error) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldAppearance:
		return attributes.TypeAppearance, nil
	case FieldPersonality:
		return attributes.TypePersonality, nil
	case FieldScentsAromas, "scents":
		return attributes.TypeScentsAromas, nil
	default:
		return "", fmt.Errorf("field %q does not hold attributes", field)
	}
}

// NewCharacter creates a template with a fresh ID.
func NewCharacter(name string, age int) *Character {
	now := time.Now().UTC()
	return &Character{
		ID:           uuid.New(),
		Name:         name,
		Age:          age,
		Appearance:   attributes.AttributeMap{},
		Personality:  attributes.AttributeMap{},
		ScentsAromas: attributes.AttributeMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewInstance copies a template into a new instance for an adventure. The
// copy is deep, so later changes to the instance never reach the template.
func NewInstance(tmpl *Character, adventureID uuid.UUID) (*CharacterInstance, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("character template cannot be nil")
	}

	now := time.Now().UTC()
	return &CharacterInstance{
		ID:           uuid.New(),
		AdventureID:  adventureID,
		CharacterID:  tmpl.ID,
		Name:         tmpl.Name,
		Age:          tmpl.Age,
		Background:   tmpl.Background,
		Appearance:   cloneOrEmpty(tmpl.Appearance),
		Personality:  cloneOrEmpty(tmpl.Personality),
		ScentsAromas: cloneOrEmpty(tmpl.ScentsAromas),
		StateUpdates: state.StateUpdateMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Attributes returns the attribute map stored under field.
func (ci *CharacterInstance) Attributes(field string) (attributes.AttributeMap, error) {
	t, err := AttributeTypeForField(field)
	if err != nil {
		return nil, err
	}
	switch t {
	case attributes.TypeAppearance:
		return ci.Appearance, nil
	case attributes.TypePersonality:
		return ci.Personality, nil
	default:
		return ci.ScentsAromas, nil
	}
}

// SetAttributes replaces the attribute map stored under field.
func (ci *CharacterInstance) SetAttributes(field string, m attributes.AttributeMap) error {
	t, err := AttributeTypeForField(field)
	if err != nil {
		return err
	}
	switch t {
	case attributes.TypeAppearance:
		ci.Appearance = m
	case attributes.TypePersonality:
		ci.Personality = m
	default:
		ci.ScentsAromas = m
	}
	return nil
}

// Clone returns a deep copy of the instance. State update values are shared.
func (ci *CharacterInstance) Clone() *CharacterInstance {
	if ci == nil {
		return nil
	}
	c := *ci
	c.Appearance = ci.Appearance.Clone()
	c.Personality = ci.Personality.Clone()
	c.ScentsAromas = ci.ScentsAromas.Clone()
	if ci.StateUpdates != nil {
		c.StateUpdates = maps.Clone(ci.StateUpdates)
	}
	return &c
}

func cloneOrEmpty(m attributes.AttributeMap) attributes.AttributeMap {
	if m == nil {
		return attributes.AttributeMap{}
	}
	return m.Clone()
}
