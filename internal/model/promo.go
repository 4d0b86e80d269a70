package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType is the kind of discount a promo code grants.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal, optionally capped.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, never more than the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountPercentage, DiscountFixed:
		return true
	default:
		return false
	}
}

// PromoStatus is derived from a promo record and the current time. It is never persisted.
type PromoStatus string

const (
	PromoStatusInactive     PromoStatus = "inactive"
	PromoStatusUpcoming     PromoStatus = "upcoming"
	PromoStatusExpired      PromoStatus = "expired"
	PromoStatusLimitReached PromoStatus = "limit-reached"
	PromoStatusActive       PromoStatus = "active"
)

// PromoCode represents a promotion identified by a unique code.
type PromoCode struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	Code            string           `json:"code" db:"code"`
	Type            DiscountType     `json:"type" db:"discount_type"`
	Value           decimal.Decimal  `json:"value" db:"value"`
	MinimumAmount   decimal.Decimal  `json:"minimumAmount" db:"minimum_amount"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount,omitempty" db:"maximum_discount"`
	UsageLimit      *int             `json:"usageLimit,omitempty" db:"usage_limit"`
	UsedCount       int              `json:"usedCount" db:"used_count"`
	ValidFrom       time.Time        `json:"validFrom" db:"valid_from"`
	ValidUntil      time.Time        `json:"validUntil" db:"valid_until"`
	IsActive        bool             `json:"isActive" db:"is_active"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time        `json:"updatedAt" db:"updated_at"`
}

// NormalizeCode returns the canonical form used for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the definition invariants of a promo code.
func (p *PromoCode) Validate() error {
	if NormalizeCode(p.Code) == "" {
		return fmt.Errorf("promo code is required")
	}

	if !p.Type.Valid() {
		return fmt.Errorf("promo %s: unsupported discount type %q", p.Code, p.Type)
	}

	if p.Value.IsNegative() {
		return fmt.Errorf("promo %s: value must not be negative", p.Code)
	}

	if p.Type == DiscountPercentage && p.Value.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("promo %s: percentage value must not exceed 100", p.Code)
	}

	if p.MinimumAmount.IsNegative() {
		return fmt.Errorf("promo %s: minimum amount must not be negative", p.Code)
	}

	if p.MaximumDiscount != nil && p.MaximumDiscount.IsNegative() {
		return fmt.Errorf("promo %s: maximum discount must not be negative", p.Code)
	}

	if !twoDecimals(p.Value) || !twoDecimals(p.MinimumAmount) ||
		(p.MaximumDiscount != nil && !twoDecimals(*p.MaximumDiscount)) {
		return fmt.Errorf("promo %s: amounts must have at most two decimal places", p.Code)
	}

	if p.UsageLimit != nil && *p.UsageLimit < 1 {
		return fmt.Errorf("promo %s: usage limit must be positive", p.Code)
	}

	if p.UsedCount < 0 {
		return fmt.Errorf("promo %s: used count must not be negative", p.Code)
	}

	if !p.ValidFrom.Before(p.ValidUntil) {
		return fmt.Errorf("promo %s: validFrom must be before validUntil", p.Code)
	}

	return nil
}

func twoDecimals(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// RedemptionStatus is the state of a single redemption in the ledger.
type RedemptionStatus string

const (
	RedemptionRedeemed   RedemptionStatus = "redeemed"
	RedemptionRolledBack RedemptionStatus = "rolled_back"
)

// Redemption records one consumed usage slot of a promo code.
type Redemption struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	PromoID    uuid.UUID        `json:"promoId" db:"promo_id"`
	Status     RedemptionStatus `json:"status" db:"status"`
	UsedCount  int              `json:"usedCount" db:"-"`
	RedeemedAt time.Time        `json:"redeemedAt" db:"created_at"`
}

// PromoQuote is the advisory, cart-time view of a promo code.
type PromoQuote struct {
	Promo    *PromoCode       `json:"promo"`
	Status   PromoStatus      `json:"status"`
	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
	Eligible *bool            `json:"eligible,omitempty"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

// PromoResponse is the API view of a PromoQuote. Amounts are rendered with
// exactly two decimals.
type PromoResponse struct {
	Code            string       `json:"code"`
	Type            DiscountType `json:"type"`
	Value           string       `json:"value"`
	MinimumAmount   string       `json:"minimumAmount"`
	MaximumDiscount *string      `json:"maximumDiscount,omitempty"`
	UsageLimit      *int         `json:"usageLimit,omitempty"`
	UsedCount       int          `json:"usedCount"`
	ValidFrom       time.Time    `json:"validFrom"`
	ValidUntil      time.Time    `json:"validUntil"`
	IsActive        bool         `json:"isActive"`
	Status          PromoStatus  `json:"status"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`

	Subtotal *string `json:"subtotal,omitempty"`
	Eligible *bool   `json:"eligible,omitempty"`
	Discount *string `json:"discount,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// NewPromoResponse builds the API view of q.
func NewPromoResponse(q *PromoQuote) *PromoResponse {
	p := q.Promo
	return &PromoResponse{
		Code:            p.Code,
		Type:            p.Type,
		Value:           p.Value.StringFixed(2),
		MinimumAmount:   p.MinimumAmount.StringFixed(2),
		MaximumDiscount: fixedOrNil(p.MaximumDiscount),
		UsageLimit:      p.UsageLimit,
		UsedCount:       p.UsedCount,
		ValidFrom:       p.ValidFrom,
		ValidUntil:      p.ValidUntil,
		IsActive:        p.IsActive,
		Status:          q.Status,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Subtotal:        fixedOrNil(q.Subtotal),
		Eligible:        q.Eligible,
		Discount:        fixedOrNil(q.Discount),
		Reason:          q.Reason,
	}
}

func fixedOrNil(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}
