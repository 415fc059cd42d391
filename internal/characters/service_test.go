package characters

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/internal/services"
	"github.com/jwebster45206/story-characters/pkg/attributes"
	"github.com/jwebster45206/story-characters/pkg/prompts"
	"github.com/jwebster45206/story-characters/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *Service
	store *storage.MockStorage
	cache *services.MockCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMockStorage()
	cache := services.NewMockCache()
	assembler := prompts.NewContextAssembler(store, cache, time.Minute, logger)
	return &fixture{
		svc:   NewService(store, assembler, logger),
		store: store,
		cache: cache,
	}
}

func (f *fixture) startAlice(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	c, err := f.svc.CreateCharacter(ctx, CharacterInput{
		UserID:      "user-1",
		Name:        "Alice",
		Age:         25,
		Personality: "Personality: brave, curious",
		Appearance:  "Hair: brown, long. Feet: smelly",
	})
	require.NoError(t, err)
	ci, err := f.svc.StartAdventure(ctx, c.ID, uuid.New())
	require.NoError(t, err)
	return ci.ID
}

func TestCreateCharacter_ParsesFreeText(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.CreateCharacter(context.Background(), CharacterInput{
		UserID:       "user-1",
		Name:         "  Alice ",
		Age:          25,
		Appearance:   "Hair: brown, long. Feet: smelly",
		Personality:  "brave, curious",
		ScentsAromas: "lavender",
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", c.Name)
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, []string{"Brown", "Long"}, c.Appearance["hair.color"])
	assert.Equal(t, []string{"Smelly"}, c.Appearance["feet.aroma"])
	assert.Equal(t, attributes.AttributeMap{"personality.traits": {"Brave", "Curious"}}, c.Personality)
	assert.NotEmpty(t, c.ScentsAromas)

	stored, err := f.store.LoadCharacter(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, stored.ID)
}

func TestCreateCharacter_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCharacter(context.Background(), CharacterInput{Name: " "})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = f.svc.CreateCharacter(context.Background(), CharacterInput{Name: "Bob", Age: -1})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestStartAdventure_UnknownCharacter(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartAdventure(context.Background(), uuid.New(), uuid.New())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestStartAdventure_DefaultsAdventureID(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.CreateCharacter(context.Background(), CharacterInput{Name: "Bob"})
	require.NoError(t, err)

	ci, err := f.svc.StartAdventure(context.Background(), c.ID, uuid.Nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ci.AdventureID)
	assert.Equal(t, c.ID, ci.CharacterID)
}

func TestUpdateState_SequentialWritesSameField(t *testing.T) {
	f := newFixture(t)
	id := f.startAlice(t)
	ctx := context.Background()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	first, err := f.svc.UpdateState(ctx, id, map[string]any{"mood": "angry"}, "")
	require.NoError(t, err)
	second, err := f.svc.UpdateState(ctx, id, map[string]any{"mood": "calm"}, "made amends")
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, "calm", second["mood"].Value)
	assert.Equal(t, "made amends", second["mood"].Context)
	assert.True(t, second["mood"].Timestamp.After(first["mood"].Timestamp))

	stored, err := f.store.LoadStateUpdates(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, second, stored)
}

func TestUpdateState_InvalidatesContext(t *testing.T) {
	f := newFixture(t)
	id := f.startAlice(t)
	ctx := context.Background()

	before := f.svc.BuildContext(ctx, id)
	require.NotEmpty(t, before)
	require.Len(t, f.cache.SetCalls, 1)

	_, err := f.svc.UpdateState(ctx, id, map[string]any{"mood": "furious"}, "")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{prompts.ContextKey(id)}}, f.cache.DelCalls)

	after := f.svc.BuildContext(ctx, id)
	assert.Contains(t, after, "Current state changes: mood: furious")
	assert.Equal(t, 2, f.store.InstanceLoads())
}

func TestUpdateState_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateState(ctx, uuid.New(), map[string]any{"mood": "x"}, "")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

	id := f.startAlice(t)
	_, err = f.svc.UpdateState(ctx, id, nil, "")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	f.store.SetSaveError(errors.New("disk full"))
	_, err = f.svc.UpdateState(ctx, id, map[string]any{"mood": "x"}, "")
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, f.cache.DelCalls, "cache is not touched when the write fails")
	f.store.SetSaveError(nil)

	f.cache.DelFunc = func(ctx context.Context, keys ...string) error { return errors.New("cache down") }
	_, err = f.svc.UpdateState(ctx, id, map[string]any{"mood": "x"}, "")
	assert.ErrorContains(t, err, "cache down")
}

func TestAddAttributes_MergesIntoBase(t *testing.T) {
	f := newFixture(t)
	id := f.startAlice(t)
	ctx := context.Background()

	merged, err := f.svc.AddAttributes(ctx, id, "appearance", "Hair: long, red")
	require.NoError(t, err)
	assert.Equal(t, []string{"Brown", "Long", "Red"}, merged["hair.color"])
	assert.Equal(t, []string{"Smelly"}, merged["feet.aroma"])

	ci, err := f.svc.GetInstance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, merged, ci.Appearance)
	assert.Len(t, f.cache.DelCalls, 1)
}

func TestAddAttributes_KeepsStateUpdates(t *testing.T) {
	f := newFixture(t)
	id := f.startAlice(t)
	ctx := context.Background()

	_, err := f.svc.UpdateState(ctx, id, map[string]any{"mood": "angry"}, "")
	require.NoError(t, err)
	_, err = f.svc.AddAttributes(ctx, id, "personality", "stubborn")
	require.NoError(t, err)

	stored, err := f.store.LoadStateUpdates(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "angry", stored["mood"].Value)
}

func TestAddAttributes_Errors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddAttributes(context.Background(), uuid.New(), "mood", "calm")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = f.svc.AddAttributes(context.Background(), uuid.New(), "personality", "calm")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestEditableText_RoundTrips(t *testing.T) {
	f := newFixture(t)
	id := f.startAlice(t)
	ctx := context.Background()

	text, err := f.svc.EditableText(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Personality: Brave, Curious", text.Personality)
	assert.Contains(t, text.Appearance, "Hair (color): Brown, Long")

	ci, err := f.svc.GetInstance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ci.Appearance, attributes.ParseAppearanceText(text.Appearance))
}

func TestBuildContext_UnknownInstance(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "", f.svc.BuildContext(context.Background(), uuid.New()))
}
