package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"

	CacheRedis  = "redis"
	CacheMemory = "memory"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level // derived from LogLevelRaw

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"redis"`
	RedisURL       string `env:"REDIS_URL" envDefault:"localhost:6379"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./data/characters.db"`

	CacheBackend    string        `env:"CACHE_BACKEND" envDefault:"redis"`
	ContextCacheTTL time.Duration `env:"CONTEXT_CACHE_TTL" envDefault:"5m"`
	MemoryCacheSize int           `env:"MEMORY_CACHE_SIZE" envDefault:"1024"`

	OllamaURL         string  `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	ModelName         string  `env:"MODEL_NAME" envDefault:"llama3"`
	OllamaTemperature float64 `env:"OLLAMA_TEMPERATURE"`
	OllamaNumCtx      int     `env:"OLLAMA_NUM_CTX"`
	HistoryLimit      int     `env:"HISTORY_LIMIT" envDefault:"20"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enum and range settings.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageRedis, StorageSQLite:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q: expected %s or %s", c.StorageBackend, StorageRedis, StorageSQLite)
	}
	switch c.CacheBackend {
	case CacheRedis, CacheMemory:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q: expected %s or %s", c.CacheBackend, CacheRedis, CacheMemory)
	}
	if c.StorageBackend == StorageSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite storage backend")
	}
	if c.ContextCacheTTL <= 0 {
		return fmt.Errorf("CONTEXT_CACHE_TTL must be positive, got %s", c.ContextCacheTTL)
	}
	if c.CacheBackend == CacheMemory && c.MemoryCacheSize <= 0 {
		return fmt.Errorf("MEMORY_CACHE_SIZE must be positive, got %d", c.MemoryCacheSize)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT cannot be negative, got %d", c.HistoryLimit)
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.StorageBackend == StorageRedis || c.CacheBackend == CacheRedis
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
