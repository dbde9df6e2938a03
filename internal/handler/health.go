package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and database readiness.
type HealthHandler struct {
	db     Pinger
	logger zerolog.Logger
}

// NewHealthHandler creates a health handler. A nil db reports healthy without checking.
func NewHealthHandler(db Pinger, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger.With().Str("handler", "health").Logger(),
	}
}

// Check handles GET /health requests.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error().Err(err).Msg("database health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
