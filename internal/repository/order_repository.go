package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portops/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	uniqueViolation          = "23505"
	idempotencyKeyConstraint = "orders_created_by_idempotency_key_idx"
)

const orderColumns = `id, order_no, status, customer_name, customer_email, notes,
		created_by, org_id, idempotency_key, request_hash, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// NextOrderNumber draws a value from order_no_seq. Sequence values are never
// handed out twice, so concurrent submissions cannot collide.
func (r *orderRepository) NextOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	var seq int64
	if err := tx.QueryRow(ctx, "SELECT nextval('order_no_seq')").Scan(&seq); err != nil {
		r.logger.Error().Err(err).Msg("failed to allocate order number")
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}
	return model.FormatOrderNumber(now, seq), nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.OrderNumber,
		order.Status,
		order.CustomerName,
		order.CustomerEmail,
		order.Notes,
		order.CreatedBy,
		order.OrgID,
		order.IdempotencyKey,
		order.RequestHash,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, idempotencyKeyConstraint) {
			r.logger.Info().
				Str("order_id", order.ID.String()).
				Msg("idempotency key already used")
			return model.ErrDuplicateSubmission
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
// total_price is generated by the store and read back into each item.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, position, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING total_price, created_at
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.Position, item.ProductName, item.Quantity, item.UnitPrice)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		err := results.QueryRow().Scan(&items[i].TotalPrice, &items[i].CreatedAt)
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Int("position", items[i].Position).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item %d: %w", items[i].Position, err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID reads the header and items inside one read-only repeatable-read
// transaction so both come from the same snapshot.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (order *model.Order, items []model.OrderItem, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin read transaction")
		return nil, nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err = scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, position, product_name, quantity, unit_price, total_price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`

	rows, err := tx.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items = []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.Position,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
			&item.CreatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to finish read transaction: %w", err)
	}

	return order, items, nil
}

// GetByIdempotencyKey retrieves the order createdBy submitted with the given key.
// Keys of other users never match.
func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, createdBy, key string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE COALESCE(created_by, '') = $1 AND idempotency_key = $2`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, createdBy, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query order by idempotency key")
		return nil, fmt.Errorf("failed to query order by idempotency key: %w", err)
	}
	return order, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.Status,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.Notes,
		&order.CreatedBy,
		&order.OrgID,
		&order.IdempotencyKey,
		&order.RequestHash,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// isUniqueViolation reports whether err is a unique violation on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
