package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"portops/internal/model"
	"portops/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	validator *requestValidator
	metrics   Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewOrderService creates a new order service. A nil metrics records nothing.
func NewOrderService(orderRepo repository.OrderRepository, metrics Metrics, logger zerolog.Logger) OrderService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &orderService{
		orderRepo: orderRepo,
		validator: newRequestValidator(),
		metrics:   metrics,
		logger:    logger.With().Str("service", "order").Logger(),
		now:       time.Now,
	}
}

// CreateOrder validates the request and writes the order header and items
// atomically. Validation failures return *model.ValidationError before anything
// touches the store; store failures return *model.PersistenceError.
func (s *orderService) CreateOrder(ctx context.Context, actor model.Actor, idempotencyKey string, req *model.OrderRequest) (*model.CreateOrderResult, error) {
	if err := s.validator.Validate(req); err != nil {
		s.logger.Warn().Err(err).Str("user_id", actor.UserID).Msg("order rejected")
		s.metrics.OrderFailed(FailureValidation)
		return nil, err
	}

	key := strings.TrimSpace(idempotencyKey)
	if err := validateIdempotencyKey(key); err != nil {
		s.metrics.OrderFailed(FailureValidation)
		return nil, err
	}

	var fingerprint string
	if key != "" {
		fingerprint = requestFingerprint(req)

		existing, err := s.orderRepo.GetByIdempotencyKey(ctx, actor.UserID, key)
		if err != nil {
			s.metrics.OrderFailed(FailurePersistence)
			return nil, &model.PersistenceError{Op: "create order", Err: err}
		}
		if existing != nil {
			return s.replay(existing, fingerprint)
		}
	}

	result, err := s.persist(ctx, actor, key, fingerprint, req)
	if errors.Is(err, model.ErrDuplicateSubmission) {
		// A concurrent submission with the same key committed first.
		existing, lookupErr := s.orderRepo.GetByIdempotencyKey(ctx, actor.UserID, key)
		if lookupErr == nil && existing != nil {
			return s.replay(existing, fingerprint)
		}
		if lookupErr != nil {
			err = lookupErr
		}
	}
	if err != nil {
		s.metrics.OrderFailed(FailurePersistence)
		return nil, &model.PersistenceError{Op: "create order", Err: err}
	}

	s.metrics.OrderCreated()
	return result, nil
}

// persist runs the write transaction. Any error rolls back everything.
func (s *orderService) persist(ctx context.Context, actor model.Actor, key, fingerprint string, req *model.OrderRequest) (result *model.CreateOrderResult, err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	now := s.now().UTC()

	orderNumber, err := s.orderRepo.NextOrderNumber(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:            uuid.New(),
		OrderNumber:   orderNumber,
		Status:        model.OrderStatusDraft,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Notes:         req.Notes,
		CreatedBy:     optional(actor.UserID),
		OrgID:         optional(actor.OrgID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if key != "" {
		order.IdempotencyKey = &key
		order.RequestHash = &fingerprint
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		if !errors.Is(err, model.ErrDuplicateSubmission) {
			s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		}
		return nil, err
	}

	orderItems := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		orderItems[i] = model.NewOrderItem(order.ID, i, item.ProductName, item.Quantity, *item.UnitPrice)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(orderItems)).
			Msg("failed to create order items")
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("user_id", actor.UserID).
		Int("item_count", len(orderItems)).
		Msg("order created successfully")

	return &model.CreateOrderResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}, nil
}

// replay answers a repeated submission with the order it created first.
func (s *orderService) replay(order *model.Order, fingerprint string) (*model.CreateOrderResult, error) {
	if err := checkReplay(order, fingerprint); err != nil {
		s.logger.Warn().
			Str("order_id", order.ID.String()).
			Msg("idempotency key reused with a different request")
		s.metrics.OrderFailed(FailureValidation)
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("returning order for repeated submission")
	s.metrics.OrderReplayed()

	return &model.CreateOrderResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Replayed:    true,
	}, nil
}

// GetByID retrieves an order by its ID with items ordered by position.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderDetails, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, &model.PersistenceError{Op: "load order", Err: err}
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	if items == nil {
		items = []model.OrderItem{}
	}

	return &model.OrderDetails{
		Order:   *order,
		Items:   items,
		Summary: model.Summarize(items),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
