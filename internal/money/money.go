// Package money holds the rounding rules shared by promo evaluation and pricing.
package money

import "github.com/shopspring/decimal"

// Places is the number of decimal places kept for every monetary amount.
const Places = 2

// Tolerance is the largest difference treated as a rounding artefact when
// comparing two totals.
var Tolerance = decimal.New(1, -Places)

var hundred = decimal.NewFromInt(100)

// Round rounds d to two decimal places, half-up. Amounts are never negative,
// so decimal's half-away-from-zero rounding is half-up here.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns amount * rate / 100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// Within reports whether a and b differ by no more than Tolerance.
func Within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
