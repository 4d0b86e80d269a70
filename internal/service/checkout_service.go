package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/clock"
	"storefront/internal/model"
	"storefront/internal/money"
	"storefront/internal/pricing"
	"storefront/internal/promo"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CheckoutConfig holds the pricing policies and compensation bounds.
type CheckoutConfig struct {
	Shipping        pricing.ShippingPolicy
	Tax             pricing.TaxPolicy
	RollbackTimeout time.Duration
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	promoRepo   repository.PromoRepository
	clock       clock.Clock
	config      CheckoutConfig
	logger      zerolog.Logger
}

// NewCheckoutService creates a new checkout service. promoRepo must read the
// live store, never a cache.
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	promoRepo repository.PromoRepository,
	clk clock.Clock,
	config CheckoutConfig,
	logger zerolog.Logger,
) CheckoutService {
	if clk == nil {
		clk = clock.New()
	}
	if config.RollbackTimeout <= 0 {
		config.RollbackTimeout = 5 * time.Second
	}
	return &checkoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		promoRepo:   promoRepo,
		clock:       clk,
		config:      config,
		logger:      logger.With().Str("service", "checkout").Logger(),
	}
}

// Checkout creates an order from req.
func (s *checkoutService) Checkout(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	productIDs := make([]string, len(req.Items))
	for i, item := range req.Items {
		productIDs[i] = item.ProductID
	}

	if err := s.productRepo.ValidateProductsExist(ctx, productIDs); err != nil {
		s.logger.Warn().
			Int("product_count", len(productIDs)).
			Err(err).
			Msg("product validation failed")
		return nil, err
	}

	subtotal, err := pricing.Subtotal(req.Items)
	if err != nil {
		return nil, err
	}

	var applied *model.PromoCode
	discount := decimal.Zero

	if code := requestedCode(req); code != "" {
		applied, discount, err = s.reEvaluate(ctx, code, subtotal)
		if err != nil {
			return nil, err
		}
	}

	totals, err := pricing.Compute(req.Items, discount, s.config.Shipping, s.config.Tax)
	if err != nil {
		return nil, err
	}

	if req.ExpectedTotal != nil && !money.Within(*req.ExpectedTotal, totals.Total) {
		s.logger.Warn().
			Str("submitted_total", req.ExpectedTotal.StringFixed(2)).
			Str("computed_total", totals.Total.StringFixed(2)).
			Msg("order total mismatch")
		return nil, &model.OrderTotalMismatchError{
			Submitted: *req.ExpectedTotal,
			Computed:  totals.Total,
		}
	}

	if applied == nil {
		return s.persist(ctx, req, totals, nil, nil)
	}

	redemption, err := s.redeem(ctx, applied)
	if err != nil {
		return nil, err
	}

	return s.persistRedeemed(ctx, req, totals, applied, redemption)
}

// reEvaluate loads the live promo record and evaluates it at the current
// server time.
func (s *checkoutService) reEvaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*model.PromoCode, decimal.Decimal, error) {
	p, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrPromoNotFound) {
			s.logger.Info().Str("promo_code", code).Msg("promo not found at checkout")
			return nil, decimal.Zero, &model.PromoInvalidAtCheckoutError{Code: code, Cause: err}
		}
		s.logger.Error().Err(err).Str("promo_code", code).Msg("failed to load promo")
		return nil, decimal.Zero, fmt.Errorf("failed to load promo: %w", err)
	}

	ev := promo.Evaluate(p, s.clock.Now(), subtotal)
	if !ev.Eligible {
		s.logger.Info().
			Str("promo_code", p.Code).
			Str("status", string(ev.Status)).
			Str("reason", ev.Reason).
			Msg("promo ineligible at checkout")
		return nil, decimal.Zero, &model.PromoInvalidAtCheckoutError{Code: p.Code, Cause: ev.Err()}
	}

	return p, ev.DiscountAmount, nil
}

// redeem consumes one usage slot of p.
func (s *checkoutService) redeem(ctx context.Context, p *model.PromoCode) (*model.Redemption, error) {
	redemption, err := s.promoRepo.AtomicRedeem(ctx, p.ID)
	switch {
	case err == nil:
		s.logger.Info().
			Str("promo_code", p.Code).
			Str("redemption_id", redemption.ID.String()).
			Int("used_count", redemption.UsedCount).
			Msg("promo redeemed")
		return redemption, nil

	case errors.Is(err, model.ErrPromoLimitReached):
		s.logger.Info().Str("promo_code", p.Code).Msg("promo usage limit reached at checkout")
		return nil, &model.PromoInvalidAtCheckoutError{
			Code:  p.Code,
			Cause: &model.PromoNotActiveError{Code: p.Code, Reason: model.PromoStatusLimitReached},
		}

	case errors.Is(err, model.ErrPromoNotFound):
		return nil, &model.PromoInvalidAtCheckoutError{Code: p.Code, Cause: err}

	case errors.Is(err, model.ErrPromoRedeemConflict):
		s.logger.Warn().Str("promo_code", p.Code).Msg("promo redemption contended")
		return nil, err

	default:
		s.logger.Error().Err(err).Str("promo_code", p.Code).Msg("failed to redeem promo")
		return nil, fmt.Errorf("failed to redeem promo: %w", err)
	}
}

// persistRedeemed persists the order and releases the redemption if the
// order is not created, including on panic.
func (s *checkoutService) persistRedeemed(
	ctx context.Context,
	req *model.OrderRequest,
	totals model.OrderTotals,
	p *model.PromoCode,
	redemption *model.Redemption,
) (resp *model.OrderResponse, err error) {
	var once sync.Once
	compensate := func() {
		once.Do(func() { s.rollbackRedemption(ctx, redemption) })
	}

	defer func() {
		if r := recover(); r != nil {
			compensate()
			panic(r)
		}
		if err != nil {
			compensate()
		}
	}()

	if err = ctx.Err(); err != nil {
		s.logger.Warn().Err(err).Str("redemption_id", redemption.ID.String()).Msg("checkout cancelled after redemption")
		return nil, err
	}

	return s.persist(ctx, req, totals, p, redemption)
}

// rollbackRedemption runs on a context detached from the request so that a
// cancelled request still releases its slot.
func (s *checkoutService) rollbackRedemption(ctx context.Context, redemption *model.Redemption) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.RollbackTimeout)
	defer cancel()

	rolledBack, err := s.promoRepo.CompensateRollback(rbCtx, redemption.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("redemption_id", redemption.ID.String()).
			Str("promo_id", redemption.PromoID.String()).
			Msg("failed to roll back promo redemption")
		return
	}

	s.logger.Info().
		Str("redemption_id", redemption.ID.String()).
		Str("promo_id", redemption.PromoID.String()).
		Bool("rolled_back", rolledBack).
		Msg("promo redemption compensated")
}

// persist writes the order and its items in one transaction.
func (s *checkoutService) persist(
	ctx context.Context,
	req *model.OrderRequest,
	totals model.OrderTotals,
	p *model.PromoCode,
	redemption *model.Redemption,
) (resp *model.OrderResponse, err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	now := s.clock.Now()
	order := &model.Order{
		ID:              uuid.New(),
		Totals:          totals,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p != nil {
		code := p.Code
		order.PromoCode = &code
	}
	if redemption != nil {
		id := redemption.ID
		order.RedemptionID = &id
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderItems := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		orderItems[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(orderItems)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	event := s.logger.Info().
		Str("order_id", order.ID.String()).
		Int("item_count", len(orderItems)).
		Str("total", totals.Total.StringFixed(2))
	if order.PromoCode != nil {
		event = event.Str("promo_code", *order.PromoCode)
	}
	event.Msg("order created successfully")

	return model.NewOrderResponse(order, orderItems), nil
}

// GetByID retrieves an order by its ID with all items.
func (s *checkoutService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if items == nil {
		items = []model.OrderItem{}
	}

	return model.NewOrderResponse(order, items), nil
}

func requestedCode(req *model.OrderRequest) string {
	if req.PromoCode == nil {
		return ""
	}
	return model.NormalizeCode(*req.PromoCode)
}

// validateOrderRequest validates the order request.
func (s *checkoutService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return model.NewValidationError("", "order request is required")
	}

	if len(req.Items) == 0 {
		return model.NewValidationError("items", "order must contain at least one item")
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return model.NewValidationError(fmt.Sprintf("items[%d].productId", i), "product ID is required")
		}

		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}

		if item.UnitPrice.IsNegative() {
			return model.ErrInvalidPrice
		}

		if !item.UnitPrice.Equal(money.Round(item.UnitPrice)) {
			return model.NewValidationError(fmt.Sprintf("items[%d].unitPrice", i), "unit price must have at most two decimal places")
		}
	}

	if req.ExpectedTotal != nil && req.ExpectedTotal.IsNegative() {
		return model.NewValidationError("expectedTotal", "expected total must not be negative")
	}

	addr := req.ShippingAddress
	required := []struct {
		field string
		value string
	}{
		{"shippingAddress.name", addr.Name},
		{"shippingAddress.line1", addr.Line1},
		{"shippingAddress.city", addr.City},
		{"shippingAddress.postalCode", addr.PostalCode},
		{"shippingAddress.country", addr.Country},
	}
	for _, r := range required {
		if r.value == "" {
			return model.NewValidationError(r.field, "is required")
		}
	}

	return nil
}
