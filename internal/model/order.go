package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusDraft      OrderStatus = "draft"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order represents a customer order header.
type Order struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	OrderNumber    string      `json:"orderNumber" db:"order_no"`
	Status         OrderStatus `json:"status" db:"status"`
	CustomerName   string      `json:"customerName" db:"customer_name"`
	CustomerEmail  *string     `json:"customerEmail,omitempty" db:"customer_email"`
	Notes          *string     `json:"notes,omitempty" db:"notes"`
	CreatedBy      *string     `json:"createdBy,omitempty" db:"created_by"`
	OrgID          *string     `json:"orgId,omitempty" db:"org_id"`
	IdempotencyKey *string     `json:"-" db:"idempotency_key"`
	RequestHash    *string     `json:"-" db:"request_hash"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`
}

// FormatOrderNumber renders the human-facing order number, ORD-YYYYMMDD-NNNNNN,
// from the creation date (UTC) and a store sequence value.
func FormatOrderNumber(createdAt time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%06d", createdAt.UTC().Format("20060102"), seq)
}

// OrderItem represents a line item in an order.
// TotalPrice is always quantity × unit price; the database column is generated.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	Position    int             `json:"position" db:"position"`
	ProductName string          `json:"productName" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	TotalPrice  decimal.Decimal `json:"totalPrice" db:"total_price"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// NewOrderItem builds an item for the given order with its total price computed.
func NewOrderItem(orderID uuid.UUID, position int, productName string, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		Position:    position,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  LineTotal(quantity, unitPrice),
	}
}

// LineTotal returns quantity × unit price.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Actor identifies who submits an order. It is supplied by the identity provider
// in front of the service and passed explicitly into the order service.
type Actor struct {
	UserID string
	OrgID  string
}

// Authenticated reports whether the actor carries a user identity.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	CustomerName  string             `json:"customer_name" validate:"required,max=255"`
	CustomerEmail *string            `json:"customer_email,omitempty" validate:"omitempty,max=255"`
	Notes         *string            `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Items         []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductName string           `json:"product_name" validate:"required,max=255"`
	Quantity    int              `json:"quantity" validate:"min=1,max=2147483647"`
	UnitPrice   *decimal.Decimal `json:"unit_price" validate:"required,money"`
}

// CreateOrderResult is the outcome of a successful submission.
type CreateOrderResult struct {
	OrderID     uuid.UUID
	OrderNumber string
	// Replayed is set when an earlier submission with the same idempotency key
	// already created the order.
	Replayed bool
}

// OrderSummary holds totals derived from an order's items.
type OrderSummary struct {
	ItemCount     int
	TotalQuantity int
	GrandTotal    decimal.Decimal
}

// Summarize computes the summary from the stored item totals.
func Summarize(items []OrderItem) OrderSummary {
	summary := OrderSummary{
		ItemCount:  len(items),
		GrandTotal: decimal.Zero,
	}
	for _, item := range items {
		summary.TotalQuantity += item.Quantity
		summary.GrandTotal = summary.GrandTotal.Add(item.TotalPrice)
	}
	return summary
}

// OrderDetails is an order header joined with its items.
type OrderDetails struct {
	Order   Order
	Items   []OrderItem
	Summary OrderSummary
}
