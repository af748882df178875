package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mediabed/mediabed"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse is the minimal acknowledgement body used by the
// mutation endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes an appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	switch {
	case errors.Is(err, mediabed.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Not found")
	case errors.Is(err, mediabed.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid input")
	case errors.Is(err, mediabed.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
	case errors.Is(err, mediabed.ErrUpstream), errors.Is(err, mediabed.ErrNoFileID):
		WriteError(w, http.StatusBadGateway, "upstream_error", "Upstream error")
	default:
		// Transport, fetch, and catalog faults: transient, never cached.
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

// WriteCached replays a complete cached response verbatim.
func WriteCached(w http.ResponseWriter, resp mediabed.CachedResponse) {
	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		slog.Error("failed to write response body", "error", err)
	}
}
