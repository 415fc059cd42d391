package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/internal/characters"
	"github.com/jwebster45206/story-characters/pkg/storage"
)

// maxBodyBytes bounds request bodies read by the JSON handlers.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, characters.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err, "status", status)
	}
}

// writeError writes an ErrorResponse. Server errors are logged and their
// detail is withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		msg = "Internal server error"
	} else {
		logger.Warn("Request rejected",
			"error", err,
			"status", status,
			"method", r.Method,
			"path", r.URL.Path)
	}
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, logger *slog.Logger, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, logger, http.StatusMethodNotAllowed, ErrorResponse{
		Error: "Method not allowed. Supported methods: " + strings.Join(allowed, ", "),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

// splitResourcePath trims prefix from path and returns the resource ID and
// any sub-resource, e.g. "/v1/instances/{id}/state" gives (id, "state").
// A path naming only the collection returns uuid.Nil.
func splitResourcePath(path, prefix string) (uuid.UUID, string, error) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return uuid.Nil, "", nil
	}
	idStr, sub, _ := strings.Cut(rest, "/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: invalid ID %q", errBadRequest, idStr)
	}
	return id, sub, nil
}
