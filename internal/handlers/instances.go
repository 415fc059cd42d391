package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/internal/characters"
	"github.com/jwebster45206/story-characters/pkg/attributes"
	"github.com/jwebster45206/story-characters/pkg/state"
)

type CreateInstanceRequest struct {
	CharacterID uuid.UUID `json:"character_id"`
	AdventureID uuid.UUID `json:"adventure_id"`
}

type ContextResponse struct {
	InstanceID uuid.UUID `json:"instance_id"`
	Context    string    `json:"context"`
}

type UpdateStateRequest struct {
	Updates map[string]any `json:"updates"`
	Context string         `json:"context,omitempty"`
}

type UpdateStateResponse struct {
	InstanceID   uuid.UUID            `json:"instance_id"`
	StateUpdates state.StateUpdateMap `json:"state_updates"`
}

type AddAttributesRequest struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

type AddAttributesResponse struct {
	Field      string                  `json:"field"`
	Attributes attributes.AttributeMap `json:"attributes"`
}

type InstancesHandler struct {
	svc    *characters.Service
	logger *slog.Logger
}

func NewInstancesHandler(svc *characters.Service, logger *slog.Logger) *InstancesHandler {
	return &InstancesHandler{
		svc:    svc,
		logger: logger,
	}
}

// ServeHTTP handles character instance requests
// Routes:
// POST /v1/instances                 - Start an adventure from a template
// GET /v1/instances/{id}             - Read an instance
// GET /v1/instances/{id}/context     - Assembled character context
// GET /v1/instances/{id}/text        - Attributes rendered for editing
// PATCH /v1/instances/{id}/state     - Record state updates
// POST /v1/instances/{id}/attributes - Merge parsed attributes into the base
func (h *InstancesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, sub, err := splitResourcePath(r.URL.Path, "/v1/instances")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if id == uuid.Nil {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, h.logger, http.MethodPost)
			return
		}
		h.handleCreate(w, r)
		return
	}

	type route struct {
		method  string
		handler func(http.ResponseWriter, *http.Request, uuid.UUID)
	}
	routes := map[string]route{
		"":           {http.MethodGet, h.handleRead},
		"context":    {http.MethodGet, h.handleContext},
		"text":       {http.MethodGet, h.handleText},
		"state":      {http.MethodPatch, h.handleState},
		"attributes": {http.MethodPost, h.handleAttributes},
	}
	rt, ok := routes[sub]
	if !ok {
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Unknown instance resource"})
		return
	}
	if r.Method != rt.method {
		methodNotAllowed(w, h.logger, rt.method)
		return
	}
	rt.handler(w, r, id)
}

func (h *InstancesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateInstanceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.CharacterID == uuid.Nil {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "character_id is required"})
		return
	}

	ci, err := h.svc.StartAdventure(r.Context(), req.CharacterID, req.AdventureID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, ci)
}

func (h *InstancesHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ci, err := h.svc.GetInstance(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ci)
}

func (h *InstancesHandler) handleContext(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	writeJSON(w, h.logger, http.StatusOK, ContextResponse{
		InstanceID: id,
		Context:    h.svc.BuildContext(r.Context(), id),
	})
}

func (h *InstancesHandler) handleText(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	text, err := h.svc.EditableText(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, text)
}

func (h *InstancesHandler) handleState(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req UpdateStateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	merged, err := h.svc.UpdateState(r.Context(), id, req.Updates, req.Context)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, UpdateStateResponse{
		InstanceID:   id,
		StateUpdates: merged,
	})
}

func (h *InstancesHandler) handleAttributes(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req AddAttributesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	merged, err := h.svc.AddAttributes(r.Context(), id, req.Field, req.Text)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, AddAttributesResponse{
		Field:      req.Field,
		Attributes: merged,
	})
}
