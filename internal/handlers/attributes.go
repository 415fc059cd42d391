package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/story-characters/pkg/attributes"
)

type ParseAttributesRequest struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type ParseAttributesResponse struct {
	Type       string                  `json:"type"`
	Strategy   attributes.Strategy     `json:"strategy"`
	Attributes attributes.AttributeMap `json:"attributes"`
}

type RenderAttributesRequest struct {
	Attributes attributes.AttributeMap `json:"attributes"`
}

type RenderAttributesResponse struct {
	Text string `json:"text"`
}

// AttributesHandler exposes the parser and renderer without touching storage.
// Routes:
// POST /v1/attributes/parse  - free text to an attribute map
// POST /v1/attributes/render - attribute map to free text
type AttributesHandler struct {
	logger *slog.Logger
}

func NewAttributesHandler(logger *slog.Logger) *AttributesHandler {
	return &AttributesHandler{logger: logger}
}

func (h *AttributesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, h.logger, http.MethodPost)
		return
	}

	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/attributes"), "/") {
	case "parse":
		h.handleParse(w, r)
	case "render":
		h.handleRender(w, r)
	default:
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Unknown attributes operation"})
	}
}

func (h *AttributesHandler) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseAttributesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	t, err := attributes.ParseAttributeType(req.Type)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	parsed, strategy := attributes.ParseDetailed(req.Text, t)
	h.logger.Debug("Attributes parsed", "type", t, "strategy", strategy, "keys", len(parsed))
	writeJSON(w, h.logger, http.StatusOK, ParseAttributesResponse{
		Type:       string(t),
		Strategy:   strategy,
		Attributes: parsed,
	})
}

func (h *AttributesHandler) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderAttributesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, RenderAttributesResponse{
		Text: attributes.AttributeToText(req.Attributes),
	})
}
