package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrCacheClosed is returned by MemoryCache operations after Close.
var ErrCacheClosed = errors.New("cache closed")

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryCache implements Cache in process memory. It holds at most size
// entries, evicting the least recently used; expired entries are dropped
// when read.
type MemoryCache struct {
	entries *lru.Cache[string, memoryEntry]
	logger  *slog.Logger
	now     func() time.Time
	closed  atomic.Bool
}

// Ensure MemoryCache implements Cache interface
var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an in-memory cache holding up to size entries.
func NewMemoryCache(size int, logger *slog.Logger) (*MemoryCache, error) {
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryCache{
		entries: entries,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	return nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	e := memoryEntry{value: value}
	if expiration > 0 {
		e.expiresAt = c.now().Add(expiration)
	}
	if evicted := c.entries.Add(key, e); evicted {
		c.logger.Debug("Memory cache evicted oldest entry", "size", c.entries.Len())
	}
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	if c.closed.Load() {
		return "", ErrCacheClosed
	}
	e, ok := c.lookup(key)
	if !ok {
		return "", nil
	}
	return e.value, nil
}

// lookup returns the live entry for key, removing it if it has expired.
func (c *MemoryCache) lookup(key string) (memoryEntry, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		c.logger.Debug("Memory cache entry expired", "key", key)
		return memoryEntry{}, false
	}
	return e, true
}

func (c *MemoryCache) Del(ctx context.Context, keys ...string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	for _, k := range keys {
		c.entries.Remove(k)
	}
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}
	for _, k := range keys {
		if _, ok := c.lookup(k); ok {
			return true, nil
		}
	}
	return false, nil
}

// Close purges all entries. Later calls return ErrCacheClosed.
func (c *MemoryCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.entries.Purge()
	c.logger.Info("Memory cache closed")
	return nil
}
