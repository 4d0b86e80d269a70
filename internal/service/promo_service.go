package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/clock"
	"storefront/internal/model"
	"storefront/internal/money"
	"storefront/internal/promo"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// promoService implements PromoService.
type promoService struct {
	lookup promo.Lookup
	clock  clock.Clock
	logger zerolog.Logger
}

// NewPromoService creates a new promo service. lookup may be a cache.
func NewPromoService(lookup promo.Lookup, clk clock.Clock, logger zerolog.Logger) PromoService {
	if clk == nil {
		clk = clock.New()
	}
	return &promoService{
		lookup: lookup,
		clock:  clk,
		logger: logger.With().Str("service", "promo").Logger(),
	}
}

// Quote returns the advisory view of a promo code.
func (s *promoService) Quote(ctx context.Context, code string, subtotal *decimal.Decimal) (*model.PromoQuote, error) {
	normalized := model.NormalizeCode(code)
	if normalized == "" {
		return nil, model.NewValidationError("code", "promo code is required")
	}

	if subtotal != nil && subtotal.IsNegative() {
		return nil, model.NewValidationError("subtotal", "subtotal must not be negative")
	}

	p, err := s.lookup.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, model.ErrPromoNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("promo_code", normalized).Msg("failed to get promo")
		return nil, fmt.Errorf("failed to get promo: %w", err)
	}

	now := s.clock.Now()
	quote := &model.PromoQuote{
		Promo:  p,
		Status: promo.Status(p, now),
	}

	if subtotal != nil {
		rounded := money.Round(*subtotal)
		ev := promo.Evaluate(p, now, rounded)
		quote.Subtotal = &rounded
		quote.Eligible = &ev.Eligible
		quote.Discount = &ev.DiscountAmount
		quote.Reason = ev.Reason
	}

	s.logger.Debug().
		Str("promo_code", p.Code).
		Str("status", string(quote.Status)).
		Msg("promo quoted")

	return quote, nil
}
