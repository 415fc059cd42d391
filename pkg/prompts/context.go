package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/pkg/actor"
	"github.com/jwebster45206/story-characters/pkg/attributes"
	"github.com/jwebster45206/story-characters/pkg/state"
)

// DefaultContextTTL is how long an assembled context stays cached.
const DefaultContextTTL = 5 * time.Minute

const contextKeyPrefix = "character-context:"

// generationStripes is the number of invalidation counters. Instances share
// counters by ID hash; a collision only costs an extra cache miss.
const generationStripes = 256

// Section labels of an assembled character context.
const (
	LabelPersonality  = "Personality: "
	LabelAppearance   = "Physical attributes: "
	LabelScents       = "Distinctive scents: "
	LabelStateChanges = "Current state changes: "
)

// CharacterSource loads the records a character context is assembled from.
// Both methods return nil, nil when the instance does not exist.
type CharacterSource interface {
	LoadCharacterInstance(ctx context.Context, id uuid.UUID) (*actor.CharacterInstance, error)
	LoadStateUpdates(ctx context.Context, instanceID uuid.UUID) (state.StateUpdateMap, error)
}

// ContextCache stores assembled contexts. Get returns "" for a missing key.
type ContextCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// ContextAssembler builds the system-prompt description of a character
// instance and caches it per instance.
type ContextAssembler struct {
	source CharacterSource
	cache  ContextCache
	ttl    time.Duration
	logger *slog.Logger

	// generations is bumped by Invalidate. An assembly whose stripe moved
	// while it was loading does not leave its result in the cache.
	generations [generationStripes]atomic.Uint64
}

// NewContextAssembler creates an assembler. cache may be nil to disable
// caching; a non-positive ttl selects DefaultContextTTL.
func NewContextAssembler(source CharacterSource, cache ContextCache, ttl time.Duration, logger *slog.Logger) *ContextAssembler {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &ContextAssembler{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// ContextKey is the cache key of an instance's assembled context.
func ContextKey(instanceID uuid.UUID) string {
	return contextKeyPrefix + instanceID.String()
}

// BuildCharacterContext returns the assembled context for an instance. It
// never fails: a missing instance or any collaborator error is logged and
// yields "".
func (a *ContextAssembler) BuildCharacterContext(ctx context.Context, instanceID uuid.UUID) (out string) {
	log := a.logger.With("instance_id", instanceID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Character context assembly panicked", "panic", r)
			out = ""
		}
	}()

	key := ContextKey(instanceID)
	gen := a.generation(instanceID).Load()
	if a.cache != nil {
		cached, err := a.cache.Get(ctx, key)
		if err != nil {
			log.Error("Failed to read cached character context", "error", err)
			return ""
		}
		if cached != "" {
			log.Debug("Character context cache hit")
			return cached
		}
		log.Debug("Character context cache miss")
	}

	ci, err := a.source.LoadCharacterInstance(ctx, instanceID)
	if err != nil {
		log.Error("Failed to load character instance", "error", err)
		return ""
	}
	if ci == nil {
		log.Warn("Character instance not found")
		return ""
	}

	updates, err := a.source.LoadStateUpdates(ctx, instanceID)
	if err != nil {
		log.Error("Failed to load state updates", "error", err)
		return ""
	}

	assembled := ComposeCharacterContext(ci, updates)

	if a.cache != nil && assembled != "" {
		if a.generation(instanceID).Load() != gen {
			log.Debug("Character context invalidated during assembly, not caching")
			return assembled
		}
		if err := a.cache.Set(ctx, key, assembled, a.ttl); err != nil {
			log.Error("Failed to cache character context", "error", err)
			return ""
		}
		// Invalidate may have run between the check and the Set.
		if a.generation(instanceID).Load() != gen {
			if err := a.cache.Del(ctx, key); err != nil {
				log.Error("Failed to drop stale character context", "error", err)
			}
		}
	}
	return assembled
}

func (a *ContextAssembler) generation(instanceID uuid.UUID) *atomic.Uint64 {
	return &a.generations[instanceID[len(instanceID)-1]]
}

// Invalidate drops the cached context of an instance. It must be called after
// every write that changes what the context would contain. Assemblies
// running in this process when it is called do not cache their result.
// Assemblies in other processes sharing the cache are not covered.
func (a *ContextAssembler) Invalidate(ctx context.Context, instanceID uuid.UUID) error {
	a.generation(instanceID).Add(1)
	if a.cache == nil {
		return nil
	}
	if err := a.cache.Del(ctx, ContextKey(instanceID)); err != nil {
		return fmt.Errorf("failed to invalidate character context: %w", err)
	}
	a.logger.Debug("Character context invalidated", "instance_id", instanceID)
	return nil
}

// ComposeCharacterContext renders an instance and its state updates as
// newline-separated context lines. updates may be nil.
func ComposeCharacterContext(ci *actor.CharacterInstance, updates state.StateUpdateMap) string {
	if ci == nil {
		return ""
	}

	header := fmt.Sprintf("You are %s, age %d.", ci.Name, ci.Age)
	if bg := strings.TrimSpace(ci.Background); bg != "" {
		header += " " + bg
	}
	lines := []string{header}

	sections := []struct {
		label string
		attrs attributes.AttributeMap
	}{
		{LabelPersonality, ci.Personality},
		{LabelAppearance, ci.Appearance},
		{LabelScents, ci.ScentsAromas},
	}
	for _, s := range sections {
		if s.attrs.IsEmpty() {
			continue
		}
		if text := strings.TrimSpace(attributes.AttributeToText(s.attrs)); text != "" {
			lines = append(lines, s.label+text)
		}
	}

	var changes []string
	for _, field := range updates.Fields() {
		u := updates[field]
		if !u.HasValue() {
			continue
		}
		if v := strings.TrimSpace(u.FormatValue()); v != "" {
			changes = append(changes, field+": "+v)
		}
	}
	if len(changes) > 0 {
		lines = append(lines, LabelStateChanges+strings.Join(changes, ", "))
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
