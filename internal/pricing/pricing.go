// Package pricing computes authoritative order totals from cart lines, a
// validated discount and injected shipping and tax policies.
package pricing

import (
	"fmt"

	"storefront/internal/model"
	"storefront/internal/money"

	"github.com/shopspring/decimal"
)

// ShippingPolicy returns the shipping charge for a discounted subtotal.
type ShippingPolicy func(discountedSubtotal decimal.Decimal) decimal.Decimal

// TaxPolicy returns the tax for a discounted subtotal.
type TaxPolicy func(discountedSubtotal decimal.Decimal) decimal.Decimal

// FlatRateShipping charges fee below freeThreshold and nothing at or above it.
func FlatRateShipping(fee, freeThreshold decimal.Decimal) ShippingPolicy {
	return func(discountedSubtotal decimal.Decimal) decimal.Decimal {
		if discountedSubtotal.GreaterThanOrEqual(freeThreshold) {
			return decimal.Zero
		}
		return fee
	}
}

// PercentageTax charges ratePercent of the discounted subtotal.
func PercentageTax(ratePercent decimal.Decimal) TaxPolicy {
	return func(discountedSubtotal decimal.Decimal) decimal.Decimal {
		return money.Percent(discountedSubtotal, ratePercent)
	}
}

// NoShipping is a ShippingPolicy that never charges.
func NoShipping(decimal.Decimal) decimal.Decimal { return decimal.Zero }

// NoTax is a TaxPolicy that never charges.
func NoTax(decimal.Decimal) decimal.Decimal { return decimal.Zero }

// Subtotal sums unitPrice * quantity over items and rounds the sum.
func Subtotal(items []model.CartLineItem) (decimal.Decimal, error) {
	sum := decimal.Zero
	for i, item := range items {
		if item.Quantity < 1 {
			return decimal.Zero, fmt.Errorf("item %d: %w", i, model.ErrInvalidQuantity)
		}
		if item.UnitPrice.IsNegative() {
			return decimal.Zero, fmt.Errorf("item %d: %w", i, model.ErrInvalidPrice)
		}
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return money.Round(sum), nil
}

// Compute returns the totals for items with discount applied. The result
// depends only on its arguments, so a server-side recomputation is always
// authoritative over a client-submitted total.
func Compute(items []model.CartLineItem, discount decimal.Decimal, shipping ShippingPolicy, tax TaxPolicy) (model.OrderTotals, error) {
	if discount.IsNegative() {
		return model.OrderTotals{}, fmt.Errorf("discount must not be negative: %s", discount)
	}
	if shipping == nil {
		shipping = NoShipping
	}
	if tax == nil {
		tax = NoTax
	}

	subtotal, err := Subtotal(items)
	if err != nil {
		return model.OrderTotals{}, err
	}

	discount = money.Round(discount)
	base := money.NonNegative(subtotal.Sub(discount))

	shippingAmount := money.Round(money.NonNegative(shipping(base)))
	taxAmount := money.Round(money.NonNegative(tax(base)))

	total := subtotal.Sub(discount).Add(shippingAmount).Add(taxAmount)

	return model.OrderTotals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shippingAmount,
		Tax:      taxAmount,
		Total:    money.Round(money.NonNegative(total)),
	}, nil
}
