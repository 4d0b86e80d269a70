// Package promo derives the status of promo codes, computes their discounts
// and loads promo definitions for seeding the store.
package promo

import (
	"time"

	"storefront/internal/model"
	"storefront/internal/money"

	"github.com/shopspring/decimal"
)

// ReasonBelowMinimum is reported when an active promo's minimum amount is not met.
const ReasonBelowMinimum = "below minimum"

// ReasonUnsupportedType is reported for a discount type this build does not know.
const ReasonUnsupportedType = "unsupported discount type"

// Evaluation is the outcome of evaluating a promo against a cart subtotal.
type Evaluation struct {
	Status         model.PromoStatus
	Eligible       bool
	DiscountAmount decimal.Decimal
	Reason         string

	code     string
	minimum  decimal.Decimal
	subtotal decimal.Decimal
}

// Status derives the current status of p at now. The checks run in a fixed
// order and the first match wins.
func Status(p *model.PromoCode, now time.Time) model.PromoStatus {
	switch {
	case !p.IsActive:
		return model.PromoStatusInactive
	case now.Before(p.ValidFrom):
		return model.PromoStatusUpcoming
	case now.After(p.ValidUntil):
		return model.PromoStatusExpired
	case p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit:
		return model.PromoStatusLimitReached
	default:
		return model.PromoStatusActive
	}
}

// Evaluate derives the status of p at now and, when p is eligible for the
// subtotal, the discount it grants. It has no side effects and reads no clock.
func Evaluate(p *model.PromoCode, now time.Time, subtotal decimal.Decimal) Evaluation {
	ev := Evaluation{
		Status:         Status(p, now),
		DiscountAmount: decimal.Zero,
		code:           p.Code,
		minimum:        p.MinimumAmount,
		subtotal:       subtotal,
	}

	if ev.Status != model.PromoStatusActive {
		ev.Reason = string(ev.Status)
		return ev
	}

	if subtotal.LessThan(p.MinimumAmount) {
		ev.Reason = ReasonBelowMinimum
		return ev
	}

	discount, ok := Discount(p, subtotal)
	if !ok {
		ev.Reason = ReasonUnsupportedType
		return ev
	}

	ev.Eligible = true
	ev.DiscountAmount = discount
	return ev
}

// Discount computes the rounded discount p grants on subtotal, ignoring status
// and minimum amount. It reports false for an unknown discount type.
func Discount(p *model.PromoCode, subtotal decimal.Decimal) (decimal.Decimal, bool) {
	subtotal = money.NonNegative(subtotal)

	var raw decimal.Decimal
	switch p.Type {
	case model.DiscountPercentage:
		raw = money.Percent(subtotal, p.Value)
		if p.MaximumDiscount != nil {
			raw = decimal.Min(raw, *p.MaximumDiscount)
		}
	case model.DiscountFixed:
		raw = decimal.Min(p.Value, subtotal)
	default:
		return decimal.Zero, false
	}

	return money.Round(money.NonNegative(raw)), true
}

// Err returns the typed error for an ineligible evaluation, or nil.
func (e Evaluation) Err() error {
	if e.Eligible {
		return nil
	}

	if e.Status != model.PromoStatusActive {
		return &model.PromoNotActiveError{Code: e.code, Reason: e.Status}
	}

	if e.Reason == ReasonBelowMinimum {
		return &model.PromoBelowMinimumError{
			Code:     e.code,
			Required: e.minimum,
			Actual:   e.subtotal,
		}
	}

	return model.NewValidationError("promoCode", e.Reason)
}
