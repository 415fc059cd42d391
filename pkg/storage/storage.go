package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/pkg/actor"
	"github.com/jwebster45206/story-characters/pkg/state"
)

// Storage defines a unified interface for character persistence.
//
// Load methods return nil, nil when the record does not exist. Methods that
// write to an existing record return an error wrapping ErrNotFound instead.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Character templates
	SaveCharacter(ctx context.Context, c *actor.Character) error
	LoadCharacter(ctx context.Context, id uuid.UUID) (*actor.Character, error)
	DeleteCharacter(ctx context.Context, id uuid.UUID) error

	// Adventure-scoped character instances. SaveCharacterInstance writes
	// StateUpdates only when it creates the instance; afterwards they change
	// through SaveStateUpdates alone.
	SaveCharacterInstance(ctx context.Context, ci *actor.CharacterInstance) error
	LoadCharacterInstance(ctx context.Context, id uuid.UUID) (*actor.CharacterInstance, error)
	DeleteCharacterInstance(ctx context.Context, id uuid.UUID) error

	// State updates of an instance. LoadStateUpdates returns an empty map for
	// an instance with no updates and nil, nil for a missing instance.
	LoadStateUpdates(ctx context.Context, instanceID uuid.UUID) (state.StateUpdateMap, error)
	SaveStateUpdates(ctx context.Context, instanceID uuid.UUID, updates state.StateUpdateMap) error
}
