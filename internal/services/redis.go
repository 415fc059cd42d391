package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connection retry settings used by WaitForRedis.
var (
	RedisConnectAttempts = 30
	RedisRetryDelay      = 2 * time.Second
)

// RedisOptions builds client options from either a redis:// URL or a plain
// host:port address.
func RedisOptions(redisURL string) (*redis.Options, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		return opt, nil
	}
	if redisURL == "" {
		return nil, errors.New("redis address is required")
	}
	return &redis.Options{Addr: redisURL}, nil
}

// NewRedisClient opens a client for a URL or address accepted by RedisOptions.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := RedisOptions(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// WaitForRedis pings client until it answers, the attempts run out or ctx
// is done. Both the Redis cache and the Redis storage call it at startup.
func WaitForRedis(ctx context.Context, client *redis.Client, logger *slog.Logger) error {
	var err error
	for attempt := 1; attempt <= RedisConnectAttempts; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			logger.Info("Redis connection established", "addr", client.Options().Addr)
			return nil
		}
		logger.Debug("Redis not ready yet", "error", err, "attempt", attempt)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(RedisRetryDelay):
		}
	}
	return fmt.Errorf("redis did not become available after %d attempts: %w", RedisConnectAttempts, err)
}

// RedisService is the Redis-backed Cache holding assembled character
// contexts. Values are plain strings; a miss is "", nil.
type RedisService struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Cache = (*RedisService)(nil)

// NewRedisService creates a cache on a new client for redisURL.
func NewRedisService(redisURL string, logger *slog.Logger) (*RedisService, error) {
	client, err := NewRedisClient(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisService{client: client, logger: logger}, nil
}

func (r *RedisService) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisService) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		r.logger.Debug("Cache miss", "key", key)
		return "", nil
	case err != nil:
		r.logger.Error("Cache read failed", "key", key, "error", err)
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	r.logger.Debug("Cache hit", "key", key, "bytes", len(value))
	return value, nil
}

func (r *RedisService) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		r.logger.Error("Cache write failed", "key", key, "error", err)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.logger.Debug("Cache write", "key", key, "ttl", expiration, "bytes", len(value))
	return nil
}

// Del removes keys. Calling it with no keys is a no-op; Redis itself
// rejects a DEL without arguments.
func (r *RedisService) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		r.logger.Error("Cache delete failed", "keys", keys, "error", err)
		return fmt.Errorf("redis del: %w", err)
	}
	r.logger.Debug("Cache delete", "keys", keys, "removed", n)
	return nil
}

// Exists reports whether any of keys is present.
func (r *RedisService) Exists(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	n, err := r.client.Exists(ctx, keys...).Result()
	if err != nil {
		r.logger.Error("Cache exists check failed", "keys", keys, "error", err)
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisService) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis cache", "error", err)
		return err
	}
	r.logger.Info("Redis cache closed")
	return nil
}

// WaitForConnection blocks until Redis answers; see WaitForRedis.
func (r *RedisService) WaitForConnection(ctx context.Context) error {
	return WaitForRedis(ctx, r.client, r.logger)
}
