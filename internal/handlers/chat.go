package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/internal/characters"
	"github.com/jwebster45206/story-characters/internal/services"
	"github.com/jwebster45206/story-characters/pkg/chat"
	"github.com/jwebster45206/story-characters/pkg/prompts"
)

// DefaultChatTimeout bounds a single LLM round trip.
const DefaultChatTimeout = 30 * time.Second

// ChatHandler handles chat turns addressed to a character instance
// Routes:
// POST /v1/instances/{id}/chat
type ChatHandler struct {
	svc          *characters.Service
	llmService   services.LLMService
	historyLimit int
	timeout      time.Duration
	logger       *slog.Logger
}

// NewChatHandler creates a new chat handler. A negative historyLimit selects
// prompts.DefaultHistoryLimit.
func NewChatHandler(svc *characters.Service, llmService services.LLMService, historyLimit int, logger *slog.Logger) *ChatHandler {
	if historyLimit < 0 {
		historyLimit = prompts.DefaultHistoryLimit
	}
	return &ChatHandler{
		svc:          svc,
		llmService:   llmService,
		historyLimit: historyLimit,
		timeout:      DefaultChatTimeout,
		logger:       logger,
	}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for chat endpoint",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		methodNotAllowed(w, h.logger, http.MethodPost)
		return
	}

	id, sub, err := splitResourcePath(r.URL.Path, "/v1/instances")
	if err == nil && (id == uuid.Nil || sub != "chat") {
		err = fmt.Errorf("%w: expected /v1/instances/{id}/chat", errBadRequest)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var request chat.ChatRequest
	if err := decodeBody(w, r, &request); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := request.Validate(); err != nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	// An unknown instance is a 404 rather than a chat with the fallback prompt.
	if _, err := h.svc.GetInstance(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	message := request.Message
	if speaker := strings.TrimSpace(request.Speaker); speaker != "" {
		message = chat.FormatWithSpeaker(message, speaker)
	}

	characterContext := h.svc.BuildContext(r.Context(), id)
	if characterContext == "" {
		h.logger.Warn("Chatting without character context", "instance_id", id)
	}

	messages, err := prompts.BuildMessages(characterContext, request.History, message, h.historyLimit)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	response, err := h.llmService.GetChatResponse(ctx, messages)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("failed to generate chat response: %w", err))
		return
	}

	history := make([]chat.ChatMessage, 0, len(request.History)+2)
	history = append(history, request.History...)
	history = append(history,
		chat.ChatMessage{Role: chat.ChatRoleUser, Content: message},
		chat.ChatMessage{Role: chat.ChatRoleAgent, Content: response.Message},
	)
	response.History = history

	h.logger.Info("Chat turn completed",
		"instance_id", id,
		"model", response.Model,
		"history_len", len(history))
	writeJSON(w, h.logger, http.StatusOK, response)
}
