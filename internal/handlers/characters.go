package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/internal/characters"
)

// UserIDHeader carries the owning user of a newly created character.
const UserIDHeader = "X-User-ID"

type CharactersHandler struct {
	svc    *characters.Service
	logger *slog.Logger
}

func NewCharactersHandler(svc *characters.Service, logger *slog.Logger) *CharactersHandler {
	return &CharactersHandler{
		svc:    svc,
		logger: logger,
	}
}

// ServeHTTP handles character template requests
// Routes:
// POST /v1/characters     - Create a template from free text attributes
// GET /v1/characters/{id} - Read a template
func (h *CharactersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, sub, err := splitResourcePath(r.URL.Path, "/v1/characters")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if sub != "" {
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Unknown character resource"})
		return
	}

	switch {
	case r.Method == http.MethodPost && id == uuid.Nil:
		h.handleCreate(w, r)
	case r.Method == http.MethodGet && id != uuid.Nil:
		h.handleRead(w, r, id)
	default:
		methodNotAllowed(w, h.logger, http.MethodPost, http.MethodGet)
	}
}

func (h *CharactersHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in characters.CharacterInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in.UserID = strings.TrimSpace(r.Header.Get(UserIDHeader))

	c, err := h.svc.CreateCharacter(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, c)
}

func (h *CharactersHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	c, err := h.svc.GetCharacter(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, c)
}
