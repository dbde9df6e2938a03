package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"portops/internal/identity"
	"portops/internal/middleware"
	"portops/internal/model"
	"portops/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderIdempotencyKey lets clients retry a submission without creating a
// second order.
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		h.writeCreateError(w, r, http.StatusUnauthorized, "authentication required", model.ErrCodeUnauthorised, "")
		return
	}

	var req model.OrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeCreateError(w, r, http.StatusBadRequest, "invalid request body", model.ErrCodeInvalidJSON, "")
		return
	}

	result, err := h.service.CreateOrder(r.Context(), actor, r.Header.Get(HeaderIdempotencyKey), &req)
	if err != nil {
		var vErr *model.ValidationError
		var pErr *model.PersistenceError

		switch {
		case errors.As(err, &vErr):
			h.writeCreateError(w, r, http.StatusBadRequest, vErr.Error(), vErr.Code, vErr.Field)
		case errors.As(err, &pErr):
			h.writeCreateError(w, r, http.StatusInternalServerError,
				"failed to create order, please retry", model.ErrCodePersistence, "")
		default:
			h.logger.Error().Err(err).Msg("unexpected order creation error")
			h.writeCreateError(w, r, http.StatusInternalServerError,
				"failed to create order", model.ErrCodeInternalError, "")
		}
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}

	w.Header().Set("Location", "/api/orders/"+result.OrderID.String())
	writeJSON(w, status, model.CreateOrderResponse{
		Success:     true,
		OrderID:     result.OrderID.String(),
		OrderNumber: result.OrderNumber,
	})
}

func (h *OrderHandler) writeCreateError(w http.ResponseWriter, r *http.Request, status int, message, code, field string) {
	correlationID := middleware.RequestIDFromContext(r.Context())

	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.
		Str("error", message).
		Str("code", code).
		Str("field", field).
		Int("status", status).
		Str("request_id", correlationID).
		Msg("order submission failed")

	writeJSON(w, status, model.CreateOrderResponse{
		Success:       false,
		Error:         message,
		Code:          code,
		Field:         field,
		CorrelationID: correlationID,
	})
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	// Identifiers are opaque to clients; one that cannot name an order is not found.
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "order not found", model.ErrCodeOrderNotFound, h.logger)
		return
	}

	details, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found", model.ErrCodeOrderNotFound, h.logger)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to retrieve order", model.ErrCodePersistence, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.NewOrderResponse(details))
}
