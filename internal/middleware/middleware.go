package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"portops/internal/identity"
	"portops/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
	HeaderOrgID     = "X-Org-ID"
	HeaderAPIKey    = "X-API-Key"
)

// publicPaths bypass API key authentication.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

type requestIDKey struct{}

// RequestIDFromContext returns the correlation id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID assigns every request a correlation id, reusing the caller's
// X-Request-ID when present, and echoes it in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CORS adds CORS headers to the response.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Request-ID, X-User-ID, X-Org-ID, Idempotency-Key")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// APIKeyAuth validates the API key from the X-API-Key header.
func APIKeyAuth(apiKey string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get(HeaderAPIKey)
			if providedKey == "" {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("missing API key")
				writeError(w, r, http.StatusUnauthorized, "unauthorised: missing API key", model.ErrCodeUnauthorised)
				return
			}

			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("invalid API key")
				writeError(w, r, http.StatusUnauthorized, "unauthorised: invalid API key", model.ErrCodeUnauthorised)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Identity places the user and organisation forwarded by the identity
// provider into the request context. It never rejects a request; handlers
// that need a user check for one.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := model.Actor{
			UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
			OrgID:  strings.TrimSpace(r.Header.Get(HeaderOrgID)),
		}
		if actor.Authenticated() {
			r = r.WithContext(identity.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// Logging logs HTTP requests with timing information.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			logger.Info().
				Str("request_id", RequestIDFromContext(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Msg("http request")
		})
	}
}

// RouteMatcher resolves the route pattern serving a request. *http.ServeMux
// implements it.
type RouteMatcher interface {
	Handler(r *http.Request) (http.Handler, string)
}

// RequestObserver records a finished request.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

// Metrics records request counts and latency labelled by route pattern, so
// order ids never become label values.
func Metrics(observer RequestObserver, routes RouteMatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := "unmatched"
			if _, pattern := routes.Handler(r); pattern != "" {
				route = pattern
			}
			observer.ObserveRequest(route, rw.statusCode, time.Since(start))
		})
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error().
						Interface("panic", err).
						Str("request_id", RequestIDFromContext(r.Context())).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					writeError(w, r, http.StatusInternalServerError, "internal server error", model.ErrCodeInternalError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		Error:         message,
		Code:          code,
		CorrelationID: RequestIDFromContext(r.Context()),
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}
