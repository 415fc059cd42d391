package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-characters/internal/characters"
	"github.com/jwebster45206/story-characters/internal/services"
)

// RouterDeps are the collaborators the HTTP API is built from.
type RouterDeps struct {
	Service      *characters.Service
	LLM          services.LLMService
	Storage      Pinger
	Cache        Pinger
	HistoryLimit int
	Logger       *slog.Logger
}

// NewRouter registers every API route on a new ServeMux.
func NewRouter(d RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/health", NewHealthHandler(d.Storage, d.Cache, d.Logger))

	attributesHandler := NewAttributesHandler(d.Logger)
	mux.Handle("/v1/attributes/", attributesHandler)

	charactersHandler := NewCharactersHandler(d.Service, d.Logger)
	mux.Handle("/v1/characters", charactersHandler)
	mux.Handle("/v1/characters/", charactersHandler)

	instancesHandler := NewInstancesHandler(d.Service, d.Logger)
	mux.Handle("/v1/instances", instancesHandler)
	mux.Handle("/v1/instances/", instancesHandler)
	mux.Handle("/v1/instances/{id}/chat", NewChatHandler(d.Service, d.LLM, d.HistoryLimit, d.Logger))

	return mux
}
