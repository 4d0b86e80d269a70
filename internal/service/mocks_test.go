package service

import (
	"context"
	"sync/atomic"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
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

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) ValidateProductsExist(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// MockPromoRepository is a mock implementation of PromoRepository.
type MockPromoRepository struct {
	mock.Mock
}

func (m *MockPromoRepository) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	args := m.Called(ctx, code)
	if p, ok := args.Get(0).(*model.PromoCode); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPromoRepository) AtomicRedeem(ctx context.Context, promoID uuid.UUID) (*model.Redemption, error) {
	args := m.Called(ctx, promoID)
	if r, ok := args.Get(0).(*model.Redemption); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPromoRepository) CompensateRollback(ctx context.Context, redemptionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, redemptionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPromoRepository) Upsert(ctx context.Context, promo *model.PromoCode) error {
	args := m.Called(ctx, promo)
	return args.Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
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

// nopTx is a pgx.Tx whose Commit and Rollback always succeed. Other methods
// are not implemented.
type nopTx struct {
	pgx.Tx
}

func (nopTx) Commit(context.Context) error   { return nil }
func (nopTx) Rollback(context.Context) error { return nil }

// stubOrderRepository accepts every order and counts them. Safe for
// concurrent use.
type stubOrderRepository struct {
	created atomic.Int32
}

func (r *stubOrderRepository) BeginTx(context.Context) (pgx.Tx, error) { return nopTx{}, nil }

func (r *stubOrderRepository) CreateOrder(context.Context, pgx.Tx, *model.Order) error {
	r.created.Add(1)
	return nil
}

func (r *stubOrderRepository) CreateOrderItems(context.Context, pgx.Tx, []model.OrderItem) error {
	return nil
}

func (r *stubOrderRepository) GetByID(context.Context, uuid.UUID) (*model.Order, []model.OrderItem, error) {
	return nil, nil, model.ErrOrderNotFound
}
