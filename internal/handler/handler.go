package handler

import (
	"encoding/json"
	"net/http"

	"portops/internal/middleware"
	"portops/internal/model"

	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies read by handlers.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing useful can reach the client.
		return
	}
}

// writeError writes an error response carrying the request's correlation id.
func writeError(w http.ResponseWriter, r *http.Request, status int, message, code string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	correlationID := middleware.RequestIDFromContext(r.Context())
	event.
		Str("error", message).
		Str("code", code).
		Int("status", status).
		Str("request_id", correlationID).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         message,
		Code:          code,
		CorrelationID: correlationID,
	})
}
