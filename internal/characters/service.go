// Package characters coordinates character templates, their adventure
// instances, state updates and the cached character context.
package characters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/pkg/actor"
	"github.com/jwebster45206/story-characters/pkg/attributes"
	"github.com/jwebster45206/story-characters/pkg/prompts"
	"github.com/jwebster45206/story-characters/pkg/state"
	"github.com/jwebster45206/story-characters/pkg/storage"
)

// ErrInvalidInput marks caller mistakes such as an empty name or an unknown field.
var ErrInvalidInput = errors.New("invalid input")

// CharacterInput is the authoring form of a character template. Attribute
// fields are free text and are structured by the attribute parser.
type CharacterInput struct {
	UserID       string `json:"-"`
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Background   string `json:"background"`
	Appearance   string `json:"appearance"`
	Personality  string `json:"personality"`
	ScentsAromas string `json:"scents_aromas"`
}

// EditableText holds an instance's attribute maps rendered back to text for
// an edit form.
type EditableText struct {
	Appearance   string `json:"appearance"`
	Personality  string `json:"personality"`
	ScentsAromas string `json:"scents_aromas"`
}

// Service implements the character operations on top of storage and the
// context assembler.
type Service struct {
	store     storage.Storage
	assembler *prompts.ContextAssembler
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a character service.
func NewService(store storage.Storage, assembler *prompts.ContextAssembler, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		assembler: assembler,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateCharacter parses the input's free text fields and stores a new template.
func (s *Service) CreateCharacter(ctx context.Context, in CharacterInput) (*actor.Character, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Age < 0 {
		return nil, fmt.Errorf("%w: age cannot be negative", ErrInvalidInput)
	}

	c := actor.NewCharacter(name, in.Age)
	c.UserID = in.UserID
	c.Background = strings.TrimSpace(in.Background)
	c.Appearance = attributes.ParseAppearanceText(in.Appearance)
	c.Personality = attributes.ParsePersonalityText(in.Personality)
	c.ScentsAromas = attributes.ParseScentsText(in.ScentsAromas)

	if err := s.store.SaveCharacter(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save character: %w", err)
	}
	s.logger.Info("Character created", "character_id", c.ID, "user_id", c.UserID)
	return c, nil
}

// GetCharacter loads a template.
func (s *Service) GetCharacter(ctx context.Context, id uuid.UUID) (*actor.Character, error) {
	c, err := s.store.LoadCharacter(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("character %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

// StartAdventure copies a template into a new instance for an adventure.
func (s *Service) StartAdventure(ctx context.Context, characterID, adventureID uuid.UUID) (*actor.CharacterInstance, error) {
	tmpl, err := s.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if adventureID == uuid.Nil {
		adventureID = uuid.New()
	}

	ci, err := actor.NewInstance(tmpl, adventureID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveCharacterInstance(ctx, ci); err != nil {
		return nil, fmt.Errorf("failed to save character instance: %w", err)
	}
	s.logger.Info("Character instance created",
		"instance_id", ci.ID, "character_id", characterID, "adventure_id", adventureID)
	return ci, nil
}

// GetInstance loads an instance.
func (s *Service) GetInstance(ctx context.Context, id uuid.UUID) (*actor.CharacterInstance, error) {
	ci, err := s.store.LoadCharacterInstance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load character instance: %w", err)
	}
	if ci == nil {
		return nil, fmt.Errorf("character instance %s: %w", id, storage.ErrNotFound)
	}
	return ci, nil
}

// UpdateState records new field values for an instance, merges them over the
// existing updates (last write wins per field), persists the result and
// invalidates the cached context. A missing instance returns ErrNotFound.
func (s *Service) UpdateState(ctx context.Context, instanceID uuid.UUID, values map[string]any, note string) (state.StateUpdateMap, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no state updates given", ErrInvalidInput)
	}
	for field := range values {
		if strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("%w: field name cannot be empty", ErrInvalidInput)
		}
	}

	existing, err := s.store.LoadStateUpdates(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state updates: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("character instance %s: %w", instanceID, storage.ErrNotFound)
	}

	merged := state.Merge(existing, state.BuildStateUpdates(values, note, s.now()))
	if err := s.store.SaveStateUpdates(ctx, instanceID, merged); err != nil {
		return nil, fmt.Errorf("failed to save state updates: %w", err)
	}
	if err := s.assembler.Invalidate(ctx, instanceID); err != nil {
		return nil, err
	}

	s.logger.Debug("State updated", "instance_id", instanceID, "fields", len(values))
	return merged, nil
}

// AddAttributes parses text for an attribute field and merges the result into
// the instance's base attributes, keeping every existing value.
func (s *Service) AddAttributes(ctx context.Context, instanceID uuid.UUID, field, text string) (attributes.AttributeMap, error) {
	t, err := actor.AttributeTypeForField(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ci, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	current, _ := ci.Attributes(field)
	merged := attributes.MergeAttributes(current, attributes.ParseAttributeText(text, t))
	if err := ci.SetAttributes(field, merged); err != nil {
		return nil, err
	}

	if err := s.store.SaveCharacterInstance(ctx, ci); err != nil {
		return nil, fmt.Errorf("failed to save character instance: %w", err)
	}
	if err := s.assembler.Invalidate(ctx, instanceID); err != nil {
		return nil, err
	}
	return merged, nil
}

// EditableText renders an instance's base attributes back to text.
func (s *Service) EditableText(ctx context.Context, instanceID uuid.UUID) (*EditableText, error) {
	ci, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return &EditableText{
		Appearance:   attributes.AttributeToText(ci.Appearance),
		Personality:  attributes.AttributeToText(ci.Personality),
		ScentsAromas: attributes.AttributeToText(ci.ScentsAromas),
	}, nil
}

// BuildContext returns the assembled character context. It never fails; an
// unknown instance yields "".
func (s *Service) BuildContext(ctx context.Context, instanceID uuid.UUID) string {
	return s.assembler.BuildCharacterContext(ctx, instanceID)
}
