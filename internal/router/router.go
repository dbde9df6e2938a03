package router

import (
	"net/http"

	"portops/internal/handler"
	"portops/internal/metrics"
	"portops/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates the HTTP router with all routes and middleware configured.
func New(
	orderHandler *handler.OrderHandler,
	healthHandler *handler.HealthHandler,
	m *metrics.Metrics,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health and metrics endpoints (no authentication required)
	mux.HandleFunc("GET /health", healthHandler.Check)
	mux.Handle("GET /metrics", m.Handler())

	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.GetByID)

	// Applied outermost first: Recovery -> RequestID -> Logging -> Metrics -> CORS -> APIKeyAuth -> Identity
	var h http.Handler = mux
	h = middleware.Identity(h)
	h = middleware.APIKeyAuth(apiKey, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Metrics(m, mux)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(logger)(h)

	return h
}
