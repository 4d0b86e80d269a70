package service

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoService serves advisory, cart-time promo lookups.
type PromoService interface {
	// Quote returns the promo with its derived status and, when subtotal is
	// given, the discount it would grant. The result is an estimate only.
	Quote(ctx context.Context, code string, subtotal *decimal.Decimal) (*model.PromoQuote, error)
}

// CheckoutService creates orders with server-computed totals, redeeming
// the applied promo code atomically.
type CheckoutService interface {
	// Checkout validates the cart, re-evaluates the promo against the live
	// record, redeems it and persists the order. Either the order is created
	// or no usage slot remains consumed.
	Checkout(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error)

	// GetByID retrieves an order by its ID with all items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)
}
