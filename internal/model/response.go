package model

import (
	"time"

	"github.com/google/uuid"
)

// CreateOrderResponse is returned from the order submission endpoint.
type CreateOrderResponse struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"orderId,omitempty"`
	OrderNumber   string `json:"orderNumber,omitempty"`
	Error         string `json:"error,omitempty"`
	Code          string `json:"code,omitempty"`
	Field         string `json:"field,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	Status        OrderStatus         `json:"status"`
	CustomerName  string              `json:"customerName"`
	CustomerEmail *string             `json:"customerEmail,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	CreatedBy     *string             `json:"createdBy,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	Items         []OrderItemResponse `json:"items"`
	Summary       SummaryResponse     `json:"summary"`
}

// OrderItemResponse is a line item with money rendered to two decimal places.
type OrderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unitPrice"`
	TotalPrice  string    `json:"totalPrice"`
}

// SummaryResponse carries the derived order totals.
type SummaryResponse struct {
	ItemCount     int    `json:"itemCount"`
	TotalQuantity int    `json:"totalQuantity"`
	GrandTotal    string `json:"grandTotal"`
}

// NewOrderResponse renders order details for the API.
func NewOrderResponse(d *OrderDetails) *OrderResponse {
	items := make([]OrderItemResponse, len(d.Items))
	for i, item := range d.Items {
		items[i] = OrderItemResponse{
			ID:          item.ID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			TotalPrice:  item.TotalPrice.StringFixed(2),
		}
	}

	return &OrderResponse{
		ID:            d.Order.ID,
		OrderNumber:   d.Order.OrderNumber,
		Status:        d.Order.Status,
		CustomerName:  d.Order.CustomerName,
		CustomerEmail: d.Order.CustomerEmail,
		Notes:         d.Order.Notes,
		CreatedBy:     d.Order.CreatedBy,
		CreatedAt:     d.Order.CreatedAt,
		UpdatedAt:     d.Order.UpdatedAt,
		Items:         items,
		Summary: SummaryResponse{
			ItemCount:     d.Summary.ItemCount,
			TotalQuantity: d.Summary.TotalQuantity,
			GrandTotal:    d.Summary.GrandTotal.StringFixed(2),
		},
	}
}
