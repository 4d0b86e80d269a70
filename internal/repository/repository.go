package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PromoRepository defines storage and atomic mutation of promo codes.
// AtomicRedeem and CompensateRollback are the only writers of used_count.
type PromoRepository interface {
	// GetByCode retrieves a promo by code, case-insensitively.
	// Returns model.ErrPromoNotFound if no promo has the code.
	GetByCode(ctx context.Context, code string) (*model.PromoCode, error)

	// AtomicRedeem increments used_count by one if and only if the promo has
	// no usage limit or is below it, as one indivisible storage operation, and
	// records the redemption. Returns model.ErrPromoLimitReached when the
	// limit is exhausted and model.ErrPromoRedeemConflict when write
	// contention persists after the configured retries.
	AtomicRedeem(ctx context.Context, promoID uuid.UUID) (*model.Redemption, error)

	// CompensateRollback undoes a redemption whose order failed. It decrements
	// used_count at most once per redemption and reports whether it did.
	CompensateRollback(ctx context.Context, redemptionID uuid.UUID) (bool, error)

	// Upsert creates a promo or updates its definition by code.
	// used_count is never changed for an existing promo, and a usage limit
	// below it is raised to it. promo reflects the stored row on return.
	Upsert(ctx context.Context, promo *model.PromoCode) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)
}

// ProductRepository is the read side of the external catalog.
type ProductRepository interface {
	// ValidateProductsExist checks if all provided product IDs exist in the database.
	// Returns model.ErrProductNotFound if any product ID does not exist.
	ValidateProductsExist(ctx context.Context, ids []string) error
}

// clampUsageLimit keeps a redefined usage limit from dropping below the
// slots already consumed. A nil limit stays unlimited.
func clampUsageLimit(limit *int, used int) *int {
	if limit == nil || *limit >= used {
		return limit
	}
	clamped := used
	return &clamped
}

func usageLimitRaised(requested, stored *int) bool {
	return requested != nil && stored != nil && *stored > *requested
}
