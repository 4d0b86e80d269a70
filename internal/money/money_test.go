package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Already two places", input: "10.25", expected: "10.25"},
		{name: "Half rounds up", input: "0.005", expected: "0.01"},
		{name: "Half rounds up at cents", input: "7.125", expected: "7.13"},
		{name: "Below half rounds down", input: "7.1249", expected: "7.12"},
		{name: "Integer", input: "97", expected: "97.00"},
		{name: "Zero", input: "0", expected: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round(decimal.RequireFromString(tt.input))
			assert.Equal(t, tt.expected, got.StringFixed(2))
		})
	}
}

func TestNonNegative(t *testing.T) {
	assert.True(t, NonNegative(decimal.RequireFromString("-3.50")).IsZero())
	assert.True(t, NonNegative(decimal.RequireFromString("3.50")).Equal(decimal.RequireFromString("3.5")))
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.NewFromInt(90), decimal.NewFromInt(8))
	assert.True(t, got.Equal(decimal.RequireFromString("7.2")), "got %s", got)
}

func TestWithin(t *testing.T) {
	a := decimal.RequireFromString("97.20")

	assert.True(t, Within(a, decimal.RequireFromString("97.21")))
	assert.True(t, Within(a, decimal.RequireFromString("97.19")))
	assert.True(t, Within(a, a))
	assert.False(t, Within(a, decimal.RequireFromString("97.22")))
	assert.False(t, Within(a, decimal.RequireFromString("90.00")))
}
