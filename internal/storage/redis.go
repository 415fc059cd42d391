package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/internal/services"
	"github.com/jwebster45206/story-characters/pkg/actor"
	"github.com/jwebster45206/story-characters/pkg/state"
	"github.com/jwebster45206/story-characters/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	characterKeyPrefix = "character:"
	instanceKeyPrefix  = "character_instance:"
)

// RedisStorage implements the Storage interface using Redis. Characters and
// instances are stored as JSON strings without expiry; an instance's state
// updates live inside the instance document.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL is either a
// host:port address or a redis:// URL.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	client, err := services.NewRedisClient(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisStorage{client: client, logger: logger}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection blocks until Redis answers (used during startup).
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	return services.WaitForRedis(ctx, r.client, r.logger)
}

// Character template operations

func (r *RedisStorage) SaveCharacter(ctx context.Context, c *actor.Character) error {
	if c == nil {
		return errors.New("character cannot be nil")
	}
	c.UpdatedAt = time.Now().UTC()
	return r.setJSON(ctx, characterKeyPrefix+c.ID.String(), c)
}

func (r *RedisStorage) LoadCharacter(ctx context.Context, id uuid.UUID) (*actor.Character, error) {
	var c actor.Character
	found, err := r.getJSON(ctx, characterKeyPrefix+id.String(), &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (r *RedisStorage) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	return r.del(ctx, characterKeyPrefix+id.String())
}

// Character instance operations

// SaveCharacterInstance writes the instance document. When the instance
// already exists its stored state updates are kept, so a stale copy cannot
// roll back a concurrent SaveStateUpdates.
func (r *RedisStorage) SaveCharacterInstance(ctx context.Context, ci *actor.CharacterInstance) error {
	if ci == nil {
		return errors.New("character instance cannot be nil")
	}
	key := instanceKeyPrefix + ci.ID.String()

	txf := func(tx *redis.Tx) error {
		doc := *ci
		stored, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if doc.StateUpdates == nil {
				doc.StateUpdates = state.StateUpdateMap{}
			}
		case err != nil:
			return fmt.Errorf("failed to load character instance: %w", err)
		default:
			var prev actor.CharacterInstance
			if err := json.Unmarshal([]byte(stored), &prev); err != nil {
				return fmt.Errorf("failed to unmarshal character instance: %w", err)
			}
			doc.StateUpdates = prev.StateUpdates
		}
		doc.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(&doc)
		if err != nil {
			return fmt.Errorf("failed to marshal character instance: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, string(out), 0)
			return nil
		})
		if err == nil {
			ci.UpdatedAt = doc.UpdatedAt
		}
		return err
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		r.logger.Error("Failed to save character instance", "instance_id", ci.ID, "error", err)
		return err
	}
	return nil
}

func (r *RedisStorage) LoadCharacterInstance(ctx context.Context, id uuid.UUID) (*actor.CharacterInstance, error) {
	var ci actor.CharacterInstance
	found, err := r.getJSON(ctx, instanceKeyPrefix+id.String(), &ci)
	if err != nil || !found {
		return nil, err
	}
	if ci.StateUpdates == nil {
		ci.StateUpdates = state.StateUpdateMap{}
	}
	return &ci, nil
}

func (r *RedisStorage) DeleteCharacterInstance(ctx context.Context, id uuid.UUID) error {
	return r.del(ctx, instanceKeyPrefix+id.String())
}

// State update operations

func (r *RedisStorage) LoadStateUpdates(ctx context.Context, instanceID uuid.UUID) (state.StateUpdateMap, error) {
	ci, err := r.LoadCharacterInstance(ctx, instanceID)
	if err != nil || ci == nil {
		return nil, err
	}
	return ci.StateUpdates, nil
}

// SaveStateUpdates replaces the instance's state updates. The instance
// document is rewritten in a WATCH transaction so a concurrent instance save
// is not silently overwritten with stale fields.
func (r *RedisStorage) SaveStateUpdates(ctx context.Context, instanceID uuid.UUID, updates state.StateUpdateMap) error {
	key := instanceKeyPrefix + instanceID.String()

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("character instance %s: %w", instanceID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load character instance: %w", err)
		}

		var ci actor.CharacterInstance
		if err := json.Unmarshal([]byte(data), &ci); err != nil {
			return fmt.Errorf("failed to unmarshal character instance: %w", err)
		}
		ci.StateUpdates = updates
		ci.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(&ci)
		if err != nil {
			return fmt.Errorf("failed to marshal character instance: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, string(out), 0)
			return nil
		})
		return err
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Error("Failed to save state updates", "instance_id", instanceID, "error", err)
		}
		return err
	}
	return nil
}

func (r *RedisStorage) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("Failed to marshal value", "key", key, "error", err)
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save value", "key", key, "error", err)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// getJSON decodes the value at key into v. found is false when the key does
// not exist.
func (r *RedisStorage) getJSON(ctx context.Context, key string, v any) (found bool, err error) {
	data, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && data == "") {
		r.logger.Debug("Key not found", "key", key)
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to load value", "key", key, "error", err)
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		r.logger.Error("Failed to unmarshal value", "key", key, "error", err)
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStorage) del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete value", "key", key, "error", err)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
