package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/story-characters/internal/characters"
	"github.com/jwebster45206/story-characters/internal/config"
	"github.com/jwebster45206/story-characters/internal/handlers"
	"github.com/jwebster45206/story-characters/internal/logger"
	"github.com/jwebster45206/story-characters/internal/services"
	internalstorage "github.com/jwebster45206/story-characters/internal/storage"
	"github.com/jwebster45206/story-characters/pkg/prompts"
	"github.com/jwebster45206/story-characters/pkg/storage"
)

// connectionWaiter is implemented by the Redis-backed components.
type connectionWaiter interface {
	WaitForConnection(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Story Characters API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"cache_backend", cfg.CacheBackend,
		"model_name", cfg.ModelName)

	store, err := openStorage(cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	cache, err := openCache(cfg, log)
	if err != nil {
		log.Error("Failed to open cache", "error", err)
		os.Exit(1)
	}

	connCtx, connCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer connCancel()
	for name, dep := range map[string]any{"storage": store, "cache": cache} {
		if w, ok := dep.(connectionWaiter); ok {
			if err := w.WaitForConnection(connCtx); err != nil {
				log.Error("Failed to connect", "component", name, "error", err)
				os.Exit(1)
			}
		}
	}
	if err := store.Ping(connCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	llmService := services.NewOllamaService(cfg.OllamaURL, cfg.ModelName, services.OllamaOptions{
		Temperature: cfg.OllamaTemperature,
		NumCtx:      cfg.OllamaNumCtx,
	}, log)

	// Initialize the model on startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := llmService.InitModel(ctx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	assembler := prompts.NewContextAssembler(store, cache, cfg.ContextCacheTTL, log)
	svc := characters.NewService(store, assembler, log)

	mux := handlers.NewRouter(handlers.RouterDeps{
		Service:      svc,
		LLM:          llmService,
		Storage:      store,
		Cache:        cache,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: handlers.DefaultChatTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := cache.Close(); err != nil {
		log.Error("Error closing cache connection", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

func openStorage(cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageSQLite:
		return internalstorage.OpenSQLite(cfg.SQLitePath, log)
	case config.StorageRedis:
		return internalstorage.NewRedisStorage(cfg.RedisURL, log)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

func openCache(cfg *config.Config, log *slog.Logger) (services.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		return services.NewMemoryCache(cfg.MemoryCacheSize, log)
	case config.CacheRedis:
		return services.NewRedisService(cfg.RedisURL, log)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.CacheBackend)
	}
}
