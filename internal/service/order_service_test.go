package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"portops/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) NextOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	args := m.Called(ctx, tx, now)
	return args.String(0), args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) GetByIdempotencyKey(ctx context.Context, createdBy, key string) (*model.Order, error) {
	args := m.Called(ctx, createdBy, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockMetrics records outcome events.
type MockMetrics struct {
	created  int
	replayed int
	failures []string
}

func (m *MockMetrics) OrderCreated()             { m.created++ }
func (m *MockMetrics) OrderReplayed()            { m.replayed++ }
func (m *MockMetrics) OrderFailed(reason string) { m.failures = append(m.failures, reason) }

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestService(repo *MockOrderRepository, metrics Metrics) *orderService {
	svc := NewOrderService(repo, metrics, zerolog.Nop()).(*orderService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}

func acmeRequest() *model.OrderRequest {
	return &model.OrderRequest{
		CustomerName:  "  Acme Corp ",
		CustomerEmail: strPtr("ops@acme.test"),
		Items: []model.OrderItemRequest{
			{ProductName: "Widget", Quantity: 3, UnitPrice: price("10.00")},
			{ProductName: "Gadget", Quantity: 1, UnitPrice: price("25.50")},
		},
	}
}

var testActor = model.Actor{UserID: "user-42", OrgID: "org-7"}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	ctx := context.Background()

	mockOrderRepo := new(MockOrderRepository)
	mockTx := new(MockTx)
	metrics := &MockMetrics{}

	service := newTestService(mockOrderRepo, metrics)

	mockOrderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockOrderRepo.On("NextOrderNumber", ctx, mockTx, fixedNow).Return("ORD-20250601-000001", nil)
	mockOrderRepo.On("CreateOrder", ctx, mockTx, mock.MatchedBy(func(o *model.Order) bool {
		return o.CustomerName == "Acme Corp" &&
			o.Status == model.OrderStatusDraft &&
			o.OrderNumber == "ORD-20250601-000001" &&
			o.CreatedBy != nil && *o.CreatedBy == "user-42" &&
			o.OrgID != nil && *o.OrgID == "org-7" &&
			o.IdempotencyKey == nil &&
			o.CreatedAt.Equal(fixedNow)
	})).Return(nil)
	mockOrderRepo.On("CreateOrderItems", ctx, mockTx, mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 2 &&
			items[0].Position == 0 && items[0].ProductName == "Widget" &&
			items[0].TotalPrice.Equal(decimal.RequireFromString("30.00")) &&
			items[1].Position == 1 && items[1].ProductName == "Gadget" &&
			items[1].TotalPrice.Equal(decimal.RequireFromString("25.50")) &&
			items[0].OrderID == items[1].OrderID
	})).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	result, err := service.CreateOrder(ctx, testActor, "", acmeRequest())

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEqual(t, uuid.Nil, result.OrderID)
	assert.Equal(t, "ORD-20250601-000001", result.OrderNumber)
	assert.False(t, result.Replayed)
	assert.True(t, mockTx.committed)
	assert.False(t, mockTx.rolledBack)
	assert.Equal(t, 1, metrics.created)
	assert.Empty(t, metrics.failures)

	mockOrderRepo.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestOrderService_CreateOrder_ValidationError(t *testing.T) {
	tests := []struct {
		name          string
		req           *model.OrderRequest
		expectedCode  string
		expectedField string
	}{
		{
			name:         "Nil request",
			req:          nil,
			expectedCode: model.ErrCodeValidation,
		},
		{
			name: "Empty items",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items:        []model.OrderItemRequest{},
			},
			expectedCode:  model.ErrCodeEmptyOrder,
			expectedField: "items",
		},
		{
			name: "Missing items",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
			},
			expectedCode:  model.ErrCodeEmptyOrder,
			expectedField: "items",
		},
		{
			name: "Blank customer name",
			req: &model.OrderRequest{
				CustomerName: "   ",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 1, UnitPrice: price("1.00")},
				},
			},
			expectedCode:  model.ErrCodeMissingField,
			expectedField: "customer_name",
		},
		{
			name: "Customer name too long",
			req: &model.OrderRequest{
				CustomerName: strings.Repeat("a", 256),
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 1, UnitPrice: price("1.00")},
				},
			},
			expectedCode:  model.ErrCodeValidation,
			expectedField: "customer_name",
		},
		{
			name: "Zero quantity",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 1, UnitPrice: price("1.00")},
					{ProductName: "Gadget", Quantity: 0, UnitPrice: price("1.00")},
				},
			},
			expectedCode:  model.ErrCodeInvalidQuantity,
			expectedField: "items[1].quantity",
		},
		{
			name: "Negative quantity",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: -2, UnitPrice: price("1.00")},
				},
			},
			expectedCode:  model.ErrCodeInvalidQuantity,
			expectedField: "items[0].quantity",
		},
		{
			name: "Negative price",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 1, UnitPrice: price("-5.00")},
				},
			},
			expectedCode:  model.ErrCodeInvalidPrice,
			expectedField: "items[0].unit_price",
		},
		{
			name: "Price with three decimals",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 1, UnitPrice: price("1.005")},
				},
			},
			expectedCode:  model.ErrCodeInvalidPrice,
			expectedField: "items[0].unit_price",
		},
		{
			name: "Missing price",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 1},
				},
			},
			expectedCode:  model.ErrCodeMissingField,
			expectedField: "items[0].unit_price",
		},
		{
			name: "Blank product name",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: " ", Quantity: 1, UnitPrice: price("1.00")},
				},
			},
			expectedCode:  model.ErrCodeMissingField,
			expectedField: "items[0].product_name",
		},
		{
			name: "Quantity beyond integer column",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 3_000_000_000, UnitPrice: price("0.01")},
				},
			},
			expectedCode:  model.ErrCodeInvalidQuantity,
			expectedField: "items[0].quantity",
		},
		{
			name: "Price beyond numeric column",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 1, UnitPrice: price("1.00")},
					{ProductName: "Gadget", Quantity: 1, UnitPrice: price("100000000000.00")},
				},
			},
			expectedCode:  model.ErrCodeInvalidPrice,
			expectedField: "items[1].unit_price",
		},
		{
			name: "Price at ten billion",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 1, UnitPrice: price("10000000000")},
				},
			},
			expectedCode:  model.ErrCodeInvalidPrice,
			expectedField: "items[0].unit_price",
		},
		{
			name: "Line total beyond numeric column",
			req: &model.OrderRequest{
				CustomerName: "Acme Corp",
				Items: []model.OrderItemRequest{
					{ProductName: "Widget", Quantity: 1, UnitPrice: price("1.00")},
					{ProductName: "Crane", Quantity: 1000, UnitPrice: price("9999999999.99")},
				},
			},
			expectedCode:  model.ErrCodeInvalidQuantity,
			expectedField: "items[1].quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mockOrderRepo := new(MockOrderRepository)
			metrics := &MockMetrics{}
			service := newTestService(mockOrderRepo, metrics)

			result, err := service.CreateOrder(ctx, testActor, "", tt.req)

			require.Error(t, err)
			assert.Nil(t, result)

			var vErr *model.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.expectedCode, vErr.Code)
			assert.Equal(t, tt.expectedField, vErr.Field)
			assert.Equal(t, []string{FailureValidation}, metrics.failures)

			// Nothing may reach the store.
			mockOrderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
			mockOrderRepo.AssertNotCalled(t, "GetByIdempotencyKey", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_CreateOrder_ZeroPriceAllowed(t *testing.T) {
	ctx := context.Background()
	mockOrderRepo := new(MockOrderRepository)
	mockTx := new(MockTx)
	service := newTestService(mockOrderRepo, nil)

	req := &model.OrderRequest{
		CustomerName: "Acme Corp",
		Items: []model.OrderItemRequest{
			{ProductName: "Free sample", Quantity: 7, UnitPrice: price("0")},
		},
	}

	mockOrderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockOrderRepo.On("NextOrderNumber", ctx, mockTx, fixedNow).Return("ORD-20250601-000002", nil)
	mockOrderRepo.On("CreateOrder", ctx, mockTx, mock.AnythingOfType("*model.Order")).Return(nil)
	mockOrderRepo.On("CreateOrderItems", ctx, mockTx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	result, err := service.CreateOrder(ctx, testActor, "", req)

	require.NoError(t, err)
	assert.Equal(t, "ORD-20250601-000002", result.OrderNumber)
}

func TestOrderService_CreateOrder_LargestStorableValues(t *testing.T) {
	ctx := context.Background()
	mockOrderRepo := new(MockOrderRepository)
	mockTx := new(MockTx)
	service := newTestService(mockOrderRepo, nil)

	req := &model.OrderRequest{
		CustomerName: "Acme Corp",
		Items: []model.OrderItemRequest{
			{ProductName: "Crane", Quantity: 99, UnitPrice: price("9999999999.99")},
			{ProductName: "Bolt", Quantity: 2147483647, UnitPrice: price("0")},
		},
	}

	mockOrderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockOrderRepo.On("NextOrderNumber", ctx, mockTx, fixedNow).Return("ORD-20250601-000010", nil)
	mockOrderRepo.On("CreateOrder", ctx, mockTx, mock.AnythingOfType("*model.Order")).Return(nil)
	mockOrderRepo.On("CreateOrderItems", ctx, mockTx, mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 2 && items[0].TotalPrice.Equal(decimal.RequireFromString("989999999999.01"))
	})).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	result, err := service.CreateOrder(ctx, testActor, "", req)

	require.NoError(t, err)
	assert.Equal(t, "ORD-20250601-000010", result.OrderNumber)
	mockOrderRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_PersistenceFailures(t *testing.T) {
	storeErr := errors.New("connection reset")

	tests := []struct {
		name           string
		setupMocks     func(ctx context.Context, repo *MockOrderRepository, tx *MockTx)
		expectRollback bool
		expectCommit   bool
	}{
		{
			name: "Begin transaction fails",
			setupMocks: func(ctx context.Context, repo *MockOrderRepository, tx *MockTx) {
				repo.On("BeginTx", ctx).Return(nil, storeErr)
			},
		},
		{
			name: "Order number allocation fails",
			setupMocks: func(ctx context.Context, repo *MockOrderRepository, tx *MockTx) {
				repo.On("BeginTx", ctx).Return(tx, nil)
				repo.On("NextOrderNumber", ctx, tx, fixedNow).Return("", storeErr)
				tx.On("Rollback", ctx).Return(nil)
			},
			expectRollback: true,
		},
		{
			name: "Header insert fails",
			setupMocks: func(ctx context.Context, repo *MockOrderRepository, tx *MockTx) {
				repo.On("BeginTx", ctx).Return(tx, nil)
				repo.On("NextOrderNumber", ctx, tx, fixedNow).Return("ORD-20250601-000003", nil)
				repo.On("CreateOrder", ctx, tx, mock.AnythingOfType("*model.Order")).Return(storeErr)
				tx.On("Rollback", ctx).Return(nil)
			},
			expectRollback: true,
		},
		{
			name: "Item insert fails after header",
			setupMocks: func(ctx context.Context, repo *MockOrderRepository, tx *MockTx) {
				repo.On("BeginTx", ctx).Return(tx, nil)
				repo.On("NextOrderNumber", ctx, tx, fixedNow).Return("ORD-20250601-000004", nil)
				repo.On("CreateOrder", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
				repo.On("CreateOrderItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(storeErr)
				tx.On("Rollback", ctx).Return(nil)
			},
			expectRollback: true,
		},
		{
			name: "Commit fails",
			setupMocks: func(ctx context.Context, repo *MockOrderRepository, tx *MockTx) {
				repo.On("BeginTx", ctx).Return(tx, nil)
				repo.On("NextOrderNumber", ctx, tx, fixedNow).Return("ORD-20250601-000005", nil)
				repo.On("CreateOrder", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
				repo.On("CreateOrderItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
				tx.On("Commit", ctx).Return(storeErr)
				tx.On("Rollback", ctx).Return(nil)
			},
			expectRollback: true,
			expectCommit:   true,
		},
		{
			name: "Rollback also fails",
			setupMocks: func(ctx context.Context, repo *MockOrderRepository, tx *MockTx) {
				repo.On("BeginTx", ctx).Return(tx, nil)
				repo.On("NextOrderNumber", ctx, tx, fixedNow).Return("ORD-20250601-000006", nil)
				repo.On("CreateOrder", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
				repo.On("CreateOrderItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(storeErr)
				tx.On("Rollback", ctx).Return(errors.New("conn closed"))
			},
			expectRollback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mockOrderRepo := new(MockOrderRepository)
			mockTx := new(MockTx)
			metrics := &MockMetrics{}
			service := newTestService(mockOrderRepo, metrics)

			tt.setupMocks(ctx, mockOrderRepo, mockTx)

			result, err := service.CreateOrder(ctx, testActor, "", acmeRequest())

			require.Error(t, err)
			assert.Nil(t, result)

			var pErr *model.PersistenceError
			require.ErrorAs(t, err, &pErr)
			assert.ErrorIs(t, err, storeErr)
			assert.Equal(t, "create order", pErr.Op)

			assert.Equal(t, tt.expectRollback, mockTx.rolledBack)
			assert.Equal(t, tt.expectCommit, mockTx.committed)
			assert.Zero(t, metrics.created)
			assert.Equal(t, []string{FailurePersistence}, metrics.failures)

			mockOrderRepo.AssertExpectations(t)
			mockTx.AssertExpectations(t)
		})
	}
}

func TestOrderService_CreateOrder_IdempotentReplay(t *testing.T) {
	ctx := context.Background()
	mockOrderRepo := new(MockOrderRepository)
	metrics := &MockMetrics{}
	service := newTestService(mockOrderRepo, metrics)

	existing := &model.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-20250531-000099",
	}
	mockOrderRepo.On("GetByIdempotencyKey", ctx, "user-42", "retry-1").Return(existing, nil)

	result, err := service.CreateOrder(ctx, testActor, " retry-1 ", acmeRequest())

	require.NoError(t, err)
	assert.Equal(t, existing.ID, result.OrderID)
	assert.Equal(t, existing.OrderNumber, result.OrderNumber)
	assert.True(t, result.Replayed)
	assert.Equal(t, 1, metrics.replayed)
	assert.Zero(t, metrics.created)

	mockOrderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestOrderService_CreateOrder_IdempotencyKeyStored(t *testing.T) {
	ctx := context.Background()
	mockOrderRepo := new(MockOrderRepository)
	mockTx := new(MockTx)
	service := newTestService(mockOrderRepo, nil)

	mockOrderRepo.On("GetByIdempotencyKey", ctx, "user-42", "retry-2").Return(nil, nil)
	mockOrderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockOrderRepo.On("NextOrderNumber", ctx, mockTx, fixedNow).Return("ORD-20250601-000007", nil)
	mockOrderRepo.On("CreateOrder", ctx, mockTx, mock.MatchedBy(func(o *model.Order) bool {
		return o.IdempotencyKey != nil && *o.IdempotencyKey == "retry-2" &&
			o.RequestHash != nil && len(*o.RequestHash) == 64
	})).Return(nil)
	mockOrderRepo.On("CreateOrderItems", ctx, mockTx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	result, err := service.CreateOrder(ctx, testActor, "retry-2", acmeRequest())

	require.NoError(t, err)
	assert.False(t, result.Replayed)
	mockOrderRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_IdempotencyKeyScopedToUser(t *testing.T) {
	ctx := context.Background()
	mockOrderRepo := new(MockOrderRepository)
	mockTx := new(MockTx)
	metrics := &MockMetrics{}
	service := newTestService(mockOrderRepo, metrics)

	otherUser := model.Actor{UserID: "user-b"}

	// user-42 already holds "shared"; the lookup for user-b must not see it.
	mockOrderRepo.On("GetByIdempotencyKey", ctx, "user-b", "shared").Return(nil, nil)
	mockOrderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockOrderRepo.On("NextOrderNumber", ctx, mockTx, fixedNow).Return("ORD-20250601-000011", nil)
	mockOrderRepo.On("CreateOrder", ctx, mockTx, mock.MatchedBy(func(o *model.Order) bool {
		return o.CreatedBy != nil && *o.CreatedBy == "user-b" &&
			o.IdempotencyKey != nil && *o.IdempotencyKey == "shared"
	})).Return(nil)
	mockOrderRepo.On("CreateOrderItems", ctx, mockTx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	result, err := service.CreateOrder(ctx, otherUser, "shared", acmeRequest())

	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, "ORD-20250601-000011", result.OrderNumber)
	assert.Zero(t, metrics.replayed)
	mockOrderRepo.AssertNotCalled(t, "GetByIdempotencyKey", ctx, "user-42", "shared")
	mockOrderRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_ReplayFingerprint(t *testing.T) {
	original := acmeRequest()
	normalize(original)
	originalHash := requestFingerprint(original)

	changed := acmeRequest()
	changed.Items[0].Quantity = 4

	samePrices := acmeRequest()
	samePrices.Items[0].UnitPrice = price("10")

	tests := []struct {
		name         string
		req          *model.OrderRequest
		expectReplay bool
	}{
		{name: "Identical request replays", req: acmeRequest(), expectReplay: true},
		{name: "Equivalent price formatting replays", req: samePrices, expectReplay: true},
		{name: "Different request is rejected", req: changed, expectReplay: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mockOrderRepo := new(MockOrderRepository)
			metrics := &MockMetrics{}
			service := newTestService(mockOrderRepo, metrics)

			existing := &model.Order{
				ID:          uuid.New(),
				OrderNumber: "ORD-20250531-000100",
				RequestHash: &originalHash,
			}
			mockOrderRepo.On("GetByIdempotencyKey", ctx, "user-42", "retry-3").Return(existing, nil)

			result, err := service.CreateOrder(ctx, testActor, "retry-3", tt.req)

			if tt.expectReplay {
				require.NoError(t, err)
				assert.True(t, result.Replayed)
				assert.Equal(t, existing.ID, result.OrderID)
				assert.Equal(t, 1, metrics.replayed)
				return
			}

			assert.Nil(t, result)
			var vErr *model.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, model.ErrCodeIdempotencyReuse, vErr.Code)
			assert.Equal(t, "Idempotency-Key", vErr.Field)
			assert.Zero(t, metrics.replayed)
			assert.Equal(t, []string{FailureValidation}, metrics.failures)
			mockOrderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestOrderService_CreateOrder_ConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	mockOrderRepo := new(MockOrderRepository)
	mockTx := new(MockTx)
	metrics := &MockMetrics{}
	service := newTestService(mockOrderRepo, metrics)

	winner := &model.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-20250601-000008",
	}

	mockOrderRepo.On("GetByIdempotencyKey", ctx, "user-42", "race").Return(nil, nil).Once()
	mockOrderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockOrderRepo.On("NextOrderNumber", ctx, mockTx, fixedNow).Return("ORD-20250601-000009", nil)
	mockOrderRepo.On("CreateOrder", ctx, mockTx, mock.AnythingOfType("*model.Order")).Return(model.ErrDuplicateSubmission)
	mockTx.On("Rollback", ctx).Return(nil)
	mockOrderRepo.On("GetByIdempotencyKey", ctx, "user-42", "race").Return(winner, nil).Once()

	result, err := service.CreateOrder(ctx, testActor, "race", acmeRequest())

	require.NoError(t, err)
	assert.Equal(t, winner.ID, result.OrderID)
	assert.Equal(t, winner.OrderNumber, result.OrderNumber)
	assert.True(t, result.Replayed)
	assert.True(t, mockTx.rolledBack)
	assert.Equal(t, 1, metrics.replayed)
	mockOrderRepo.AssertNotCalled(t, "CreateOrderItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_IdempotencyKeyTooLong(t *testing.T) {
	mockOrderRepo := new(MockOrderRepository)
	service := newTestService(mockOrderRepo, nil)

	_, err := service.CreateOrder(context.Background(), testActor, strings.Repeat("k", 256), acmeRequest())

	var vErr *model.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Idempotency-Key", vErr.Field)
	mockOrderRepo.AssertNotCalled(t, "GetByIdempotencyKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_IdempotencyLookupFails(t *testing.T) {
	ctx := context.Background()
	mockOrderRepo := new(MockOrderRepository)
	service := newTestService(mockOrderRepo, nil)

	mockOrderRepo.On("GetByIdempotencyKey", ctx, "user-42", "k").Return(nil, errors.New("timeout"))

	result, err := service.CreateOrder(ctx, testActor, "k", acmeRequest())

	assert.Nil(t, result)
	assert.True(t, model.IsPersistence(err))
	mockOrderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestOrderService_GetByID_Success(t *testing.T) {
	ctx := context.Background()
	mockOrderRepo := new(MockOrderRepository)
	service := newTestService(mockOrderRepo, nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:           orderID,
		OrderNumber:  "ORD-20250601-000010",
		Status:       model.OrderStatusDraft,
		CustomerName: "Acme Corp",
		CreatedAt:    fixedNow,
		UpdatedAt:    fixedNow,
	}
	items := []model.OrderItem{
		model.NewOrderItem(orderID, 0, "Widget", 3, decimal.RequireFromString("10.00")),
		model.NewOrderItem(orderID, 1, "Gadget", 1, decimal.RequireFromString("25.50")),
	}

	mockOrderRepo.On("GetByID", ctx, orderID).Return(order, items, nil)

	details, err := service.GetByID(ctx, orderID)

	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, orderID, details.Order.ID)
	assert.Len(t, details.Items, 2)
	assert.Equal(t, 2, details.Summary.ItemCount)
	assert.Equal(t, 4, details.Summary.TotalQuantity)
	assert.Equal(t, "55.50", details.Summary.GrandTotal.StringFixed(2))

	mockOrderRepo.AssertExpectations(t)
}

func TestOrderService_GetByID_NoItems(t *testing.T) {
	ctx := context.Background()
	mockOrderRepo := new(MockOrderRepository)
	service := newTestService(mockOrderRepo, nil)

	orderID := uuid.New()
	mockOrderRepo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID}, []model.OrderItem(nil), nil)

	details, err := service.GetByID(ctx, orderID)

	require.NoError(t, err)
	assert.NotNil(t, details.Items)
	assert.Empty(t, details.Items)
	assert.True(t, details.Summary.GrandTotal.IsZero())
}

func TestOrderService_GetByID_Errors(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(ctx context.Context, repo *MockOrderRepository, id uuid.UUID)
		checkErr   func(t *testing.T, err error)
	}{
		{
			name: "Order not found",
			setupMocks: func(ctx context.Context, repo *MockOrderRepository, id uuid.UUID) {
				repo.On("GetByID", ctx, id).Return(nil, nil, nil)
			},
			checkErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrOrderNotFound)
			},
		},
		{
			name: "Store failure",
			setupMocks: func(ctx context.Context, repo *MockOrderRepository, id uuid.UUID) {
				repo.On("GetByID", ctx, id).Return(nil, nil, errors.New("database error"))
			},
			checkErr: func(t *testing.T, err error) {
				var pErr *model.PersistenceError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, "load order", pErr.Op)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mockOrderRepo := new(MockOrderRepository)
			service := newTestService(mockOrderRepo, nil)
			id := uuid.New()

			tt.setupMocks(ctx, mockOrderRepo, id)

			details, err := service.GetByID(ctx, id)

			require.Error(t, err)
			assert.Nil(t, details)
			tt.checkErr(t, err)
		})
	}
}
