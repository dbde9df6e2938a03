package service

import (
	"context"

	"portops/internal/model"

	"github.com/google/uuid"
)

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder validates and persists an order with its items in one
	// transaction. A non-empty idempotency key makes re-submission return the
	// order created the first time.
	CreateOrder(ctx context.Context, actor model.Actor, idempotencyKey string, req *model.OrderRequest) (*model.CreateOrderResult, error)

	// GetByID retrieves an order with its items and summary.
	// It returns model.ErrOrderNotFound when no such order exists.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderDetails, error)
}

// Metrics records order submission outcomes.
type Metrics interface {
	OrderCreated()
	OrderReplayed()
	OrderFailed(reason string)
}

// Failure reasons reported to Metrics.
const (
	FailureValidation  = "validation"
	FailurePersistence = "persistence"
)

type nopMetrics struct{}

func (nopMetrics) OrderCreated()      {}
func (nopMetrics) OrderReplayed()     {}
func (nopMetrics) OrderFailed(string) {}
