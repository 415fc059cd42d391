package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/pkg/actor"
	"github.com/jwebster45206/story-characters/pkg/attributes"
	"github.com/jwebster45206/story-characters/pkg/state"
	"github.com/jwebster45206/story-characters/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupRedisStorage(t *testing.T) *RedisStorage {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	s, err := NewRedisStorage("redis://"+mr.Addr(), testLogger())
	if err != nil {
		t.Fatalf("Failed to create redis storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := OpenSQLite(filepath.Join(t.TempDir(), "characters.db"), testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return s
}

func backends(t *testing.T) map[string]func(t *testing.T) storage.Storage {
	return map[string]func(t *testing.T) storage.Storage{
		"redis":  func(t *testing.T) storage.Storage { return setupRedisStorage(t) },
		"sqlite": func(t *testing.T) storage.Storage { return setupSQLiteStorage(t) },
		"mock":   func(t *testing.T) storage.Storage { return storage.NewMockStorage() },
	}
}

func newTestInstance(t *testing.T) (*actor.Character, *actor.CharacterInstance) {
	t.Helper()
	tmpl := actor.NewCharacter("Alice", 25)
	tmpl.UserID = "user-1"
	tmpl.Background = "Raised by wolves."
	tmpl.Appearance = attributes.AttributeMap{
		"hair.color": {"Brown", "Long"},
		"feet.aroma": {"Smelly"},
	}
	tmpl.Personality = attributes.AttributeMap{"personality.traits": {"Brave", "Curious"}}

	inst, err := actor.NewInstance(tmpl, uuid.New())
	require.NoError(t, err)
	return tmpl, inst
}

func TestStorage_Ping(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, open(t).Ping(context.Background()))
		})
	}
}

func TestStorage_CharacterRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			tmpl, _ := newTestInstance(t)

			require.NoError(t, s.SaveCharacter(ctx, tmpl))

			loaded, err := s.LoadCharacter(ctx, tmpl.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, tmpl.ID, loaded.ID)
			assert.Equal(t, "user-1", loaded.UserID)
			assert.Equal(t, tmpl.Appearance, loaded.Appearance)
			assert.Equal(t, tmpl.Personality, loaded.Personality)

			require.NoError(t, s.DeleteCharacter(ctx, tmpl.ID))
			loaded, err = s.LoadCharacter(ctx, tmpl.ID)
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})
	}
}

func TestStorage_InstancePreservesAttributeShape(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			_, inst := newTestInstance(t)

			require.NoError(t, s.SaveCharacterInstance(ctx, inst))

			loaded, err := s.LoadCharacterInstance(ctx, inst.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, inst.CharacterID, loaded.CharacterID)
			assert.Equal(t, inst.AdventureID, loaded.AdventureID)
			assert.Equal(t, attributes.AttributeMap{
				"hair.color": {"Brown", "Long"},
				"feet.aroma": {"Smelly"},
			}, loaded.Appearance)
			assert.NotNil(t, loaded.StateUpdates)
		})
	}
}

func TestStorage_MissingInstance(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			id := uuid.New()

			loaded, err := s.LoadCharacterInstance(ctx, id)
			assert.NoError(t, err)
			assert.Nil(t, loaded)

			updates, err := s.LoadStateUpdates(ctx, id)
			assert.NoError(t, err)
			assert.Nil(t, updates)

			err = s.SaveStateUpdates(ctx, id, state.StateUpdateMap{})
			assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
		})
	}
}

func TestStorage_StateUpdatesRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			_, inst := newTestInstance(t)
			require.NoError(t, s.SaveCharacterInstance(ctx, inst))

			empty, err := s.LoadStateUpdates(ctx, inst.ID)
			require.NoError(t, err)
			assert.NotNil(t, empty)
			assert.Empty(t, empty)

			now := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
			updates := state.BuildStateUpdates(map[string]any{"mood": "tired"}, "long march", now)
			require.NoError(t, s.SaveStateUpdates(ctx, inst.ID, updates))

			loaded, err := s.LoadStateUpdates(ctx, inst.ID)
			require.NoError(t, err)
			require.Contains(t, loaded, "mood")
			assert.Equal(t, "tired", loaded["mood"].Value)
			assert.Equal(t, "long march", loaded["mood"].Context)
			assert.True(t, loaded["mood"].Timestamp.Equal(now))

			// state updates are visible through the instance too, and the
			// base attributes are untouched
			ci, err := s.LoadCharacterInstance(ctx, inst.ID)
			require.NoError(t, err)
			assert.Equal(t, "tired", ci.StateUpdates["mood"].Value)
			assert.Equal(t, inst.Appearance, ci.Appearance)
		})
	}
}

func TestStorage_InstanceSaveKeepsStateUpdates(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			_, inst := newTestInstance(t)
			require.NoError(t, s.SaveCharacterInstance(ctx, inst))

			stale, err := s.LoadCharacterInstance(ctx, inst.ID)
			require.NoError(t, err)
			require.NotNil(t, stale)

			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			require.NoError(t, s.SaveStateUpdates(ctx, inst.ID,
				state.BuildStateUpdates(map[string]any{"mood": "angry"}, "", now)))

			stale.Appearance = attributes.AttributeMap{"hair.color": {"Red"}}
			require.NoError(t, s.SaveCharacterInstance(ctx, stale))

			updates, err := s.LoadStateUpdates(ctx, inst.ID)
			require.NoError(t, err)
			require.Contains(t, updates, "mood")
			assert.Equal(t, "angry", updates["mood"].Value)

			loaded, err := s.LoadCharacterInstance(ctx, inst.ID)
			require.NoError(t, err)
			assert.Equal(t, attributes.AttributeMap{"hair.color": {"Red"}}, loaded.Appearance)
			assert.Equal(t, "angry", loaded.StateUpdates["mood"].Value)
		})
	}
}

func TestStorage_DeleteInstance(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			_, inst := newTestInstance(t)
			require.NoError(t, s.SaveCharacterInstance(ctx, inst))

			require.NoError(t, s.DeleteCharacterInstance(ctx, inst.ID))
			loaded, err := s.LoadCharacterInstance(ctx, inst.ID)
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})
	}
}

func TestRedisStorage_NoExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := NewRedisStorage(mr.Addr(), testLogger())
	require.NoError(t, err)
	defer s.Close()

	_, inst := newTestInstance(t)
	require.NoError(t, s.SaveCharacterInstance(context.Background(), inst))

	key := "character_instance:" + inst.ID.String()
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Duration(0), mr.TTL(key))
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite("", testLogger())
	assert.Error(t, err)
}

func TestOpenSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "characters.db")
	ctx := context.Background()

	s, err := OpenSQLite(path, testLogger())
	require.NoError(t, err)
	tmpl, _ := newTestInstance(t)
	require.NoError(t, s.SaveCharacter(ctx, tmpl))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, testLogger())
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.LoadCharacter(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Alice", loaded.Name)
}
