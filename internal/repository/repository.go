package repository

import (
	"context"
	"time"

	"portops/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// NextOrderNumber draws the next order number from the store sequence.
	NextOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error)

	// CreateOrder inserts a new order header within the provided transaction.
	// It returns model.ErrDuplicateSubmission when the idempotency key is taken.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts the order items within the provided transaction and
	// fills in the totals computed by the store.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order and its items from a single snapshot.
	// A missing order yields nil, nil, nil.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetByIdempotencyKey retrieves the order createdBy submitted with key, or
	// nil if none. An empty createdBy matches orders without a submitter.
	GetByIdempotencyKey(ctx context.Context, createdBy, key string) (*model.Order, error)
}
