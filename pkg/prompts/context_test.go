package prompts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/pkg/actor"
	"github.com/jwebster45206/story-characters/pkg/attributes"
	"github.com/jwebster45206/story-characters/pkg/state"
	"github.com/jwebster45206/story-characters/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache is a ContextCache over a map with optional injected failures.
type mapCache struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
	delErr error
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.data[key], nil
}

func (c *mapCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return c.delErr
	}
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func saveAlice(t *testing.T, s *storage.MockStorage) *actor.CharacterInstance {
	t.Helper()
	tmpl := actor.NewCharacter("Alice", 25)
	tmpl.Personality = attributes.AttributeMap{"personality.traits": {"Brave", "Curious"}}
	inst, err := actor.NewInstance(tmpl, uuid.New())
	require.NoError(t, err)
	require.NoError(t, s.SaveCharacterInstance(context.Background(), inst))
	return inst
}

func TestBuildCharacterContext_PersonalityOnly(t *testing.T) {
	s := storage.NewMockStorage()
	inst := saveAlice(t, s)
	a := NewContextAssembler(s, newMapCache(), time.Minute, discardLogger())

	got := a.BuildCharacterContext(context.Background(), inst.ID)
	assert.Equal(t, "You are Alice, age 25.\nPersonality: Personality: Brave, Curious", got)
}

func TestBuildCharacterContext_AllSections(t *testing.T) {
	s := storage.NewMockStorage()
	tmpl := actor.NewCharacter("Bram", 41)
	tmpl.Background = "  A retired smuggler.  "
	tmpl.Personality = attributes.AttributeMap{"personality.traits": {"Gruff"}}
	tmpl.Appearance = attributes.AttributeMap{"hair.color": {"Gray"}, "left_eye.appearance": {"Scarred"}}
	tmpl.ScentsAromas = attributes.AttributeMap{"general.scents": {"Tobacco"}}
	inst, err := actor.NewInstance(tmpl, uuid.New())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.SaveCharacterInstance(ctx, inst))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveStateUpdates(ctx, inst.ID, state.BuildStateUpdates(map[string]any{
		"mood":       "anxious",
		"health":     0,
		"inventory":  []string{},
		"appearance": map[string]any{"hair.color": []any{"Red"}},
	}, "", now)))

	a := NewContextAssembler(s, nil, 0, discardLogger())
	got := a.BuildCharacterContext(ctx, inst.ID)

	expected := "You are Bram, age 41. A retired smuggler.\n" +
		"Personality: Personality: Gruff\n" +
		"Physical attributes: Hair (color): Gray; Left Eye: Scarred\n" +
		"Distinctive scents: General: Tobacco\n" +
		"Current state changes: appearance: Hair (color): Red, mood: anxious"
	assert.Equal(t, expected, got)
}

func TestBuildCharacterContext_MissingInstance(t *testing.T) {
	cache := newMapCache()
	a := NewContextAssembler(storage.NewMockStorage(), cache, time.Minute, discardLogger())

	assert.Equal(t, "", a.BuildCharacterContext(context.Background(), uuid.New()))
	assert.Empty(t, cache.data, "nothing is cached for a missing instance")
}

func TestBuildCharacterContext_CacheHitSkipsStorage(t *testing.T) {
	s := storage.NewMockStorage()
	inst := saveAlice(t, s)
	cache := newMapCache()
	a := NewContextAssembler(s, cache, time.Minute, discardLogger())
	ctx := context.Background()

	first := a.BuildCharacterContext(ctx, inst.ID)
	require.Equal(t, 1, s.InstanceLoads())
	require.Equal(t, 1, s.StateLoads())
	assert.Equal(t, time.Minute, cache.ttls[ContextKey(inst.ID)])

	second := a.BuildCharacterContext(ctx, inst.ID)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.InstanceLoads(), "second call must be served from cache")
	assert.Equal(t, 1, s.StateLoads())
}

func TestBuildCharacterContext_InvalidationRefreshes(t *testing.T) {
	s := storage.NewMockStorage()
	inst := saveAlice(t, s)
	a := NewContextAssembler(s, newMapCache(), time.Hour, discardLogger())
	ctx := context.Background()

	before := a.BuildCharacterContext(ctx, inst.ID)
	assert.NotContains(t, before, "Current state changes")

	existing, err := s.LoadStateUpdates(ctx, inst.ID)
	require.NoError(t, err)
	merged := state.Merge(existing, state.BuildStateUpdates(map[string]any{"mood": "furious"}, "", time.Now()))
	require.NoError(t, s.SaveStateUpdates(ctx, inst.ID, merged))
	require.NoError(t, a.Invalidate(ctx, inst.ID))

	after := a.BuildCharacterContext(ctx, inst.ID)
	assert.Contains(t, after, "Current state changes: mood: furious")
	assert.Equal(t, 2, s.InstanceLoads())
}

// hookSource runs afterStateLoad once the state updates have been read,
// letting a test interleave a write with an assembly in flight.
type hookSource struct {
	CharacterSource
	afterStateLoad func()
}

func (h *hookSource) LoadStateUpdates(ctx context.Context, instanceID uuid.UUID) (state.StateUpdateMap, error) {
	updates, err := h.CharacterSource.LoadStateUpdates(ctx, instanceID)
	if h.afterStateLoad != nil {
		h.afterStateLoad()
		h.afterStateLoad = nil
	}
	return updates, err
}

func TestBuildCharacterContext_InvalidatedDuringAssemblyIsNotCached(t *testing.T) {
	s := storage.NewMockStorage()
	inst := saveAlice(t, s)
	cache := newMapCache()
	src := &hookSource{CharacterSource: s}
	a := NewContextAssembler(src, cache, time.Hour, discardLogger())
	ctx := context.Background()

	src.afterStateLoad = func() {
		require.NoError(t, s.SaveStateUpdates(ctx, inst.ID,
			state.BuildStateUpdates(map[string]any{"mood": "furious"}, "", time.Now())))
		require.NoError(t, a.Invalidate(ctx, inst.ID))
	}

	stale := a.BuildCharacterContext(ctx, inst.ID)
	assert.NotContains(t, stale, "mood")
	cached, err := cache.Get(ctx, ContextKey(inst.ID))
	require.NoError(t, err)
	assert.Empty(t, cached, "a context assembled before an invalidation must not be cached")

	fresh := a.BuildCharacterContext(ctx, inst.ID)
	assert.Contains(t, fresh, "Current state changes: mood: furious")
	cached, err = cache.Get(ctx, ContextKey(inst.ID))
	require.NoError(t, err)
	assert.Equal(t, fresh, cached)
}

func TestBuildCharacterContext_FailOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *storage.MockStorage, c *mapCache)
	}{
		{
			name:  "cache read failure",
			setup: func(s *storage.MockStorage, c *mapCache) { c.getErr = errors.New("cache down") },
		},
		{
			name:  "cache write failure",
			setup: func(s *storage.MockStorage, c *mapCache) { c.setErr = errors.New("cache full") },
		},
		{
			name:  "storage failure",
			setup: func(s *storage.MockStorage, c *mapCache) { s.SetLoadError(errors.New("db down")) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.NewMockStorage()
			inst := saveAlice(t, s)
			c := newMapCache()
			tt.setup(s, c)

			a := NewContextAssembler(s, c, time.Minute, discardLogger())
			assert.Equal(t, "", a.BuildCharacterContext(context.Background(), inst.ID))
		})
	}
}

// panicSource simulates a collaborator bug.
type panicSource struct{}

func (panicSource) LoadCharacterInstance(ctx context.Context, id uuid.UUID) (*actor.CharacterInstance, error) {
	panic("boom")
}

func (panicSource) LoadStateUpdates(ctx context.Context, id uuid.UUID) (state.StateUpdateMap, error) {
	return nil, nil
}

func TestBuildCharacterContext_RecoversFromPanic(t *testing.T) {
	a := NewContextAssembler(panicSource{}, nil, 0, discardLogger())
	assert.Equal(t, "", a.BuildCharacterContext(context.Background(), uuid.New()))
}

func TestInvalidate(t *testing.T) {
	c := newMapCache()
	a := NewContextAssembler(storage.NewMockStorage(), c, 0, discardLogger())
	id := uuid.New()
	c.data[ContextKey(id)] = "stale"

	require.NoError(t, a.Invalidate(context.Background(), id))
	assert.NotContains(t, c.data, ContextKey(id))

	c.delErr = errors.New("cache down")
	assert.Error(t, a.Invalidate(context.Background(), id))

	noCache := NewContextAssembler(storage.NewMockStorage(), nil, 0, discardLogger())
	assert.NoError(t, noCache.Invalidate(context.Background(), id))
}

func TestContextKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "character-context:550e8400-e29b-41d4-a716-446655440000", ContextKey(id))
}

func TestComposeCharacterContext_SkipsBlankSections(t *testing.T) {
	ci := &actor.CharacterInstance{
		Name:        "Quill",
		Age:         19,
		Personality: attributes.AttributeMap{"personality.traits": {"  "}},
	}
	assert.Equal(t, "You are Quill, age 19.", ComposeCharacterContext(ci, nil))
	assert.Equal(t, "", ComposeCharacterContext(nil, nil))
}
