package services

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Ping tests the cache connection
	Ping(ctx context.Context) error

	// Set stores a key-value pair. A zero expiration means no expiry.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error

	// Get retrieves a value by key. A missing key returns "", nil.
	Get(ctx context.Context, key string) (string, error)

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error

	// Exists checks if keys exist
	Exists(ctx context.Context, keys ...string) (bool, error)

	// Close releases the cache
	Close() error
}
