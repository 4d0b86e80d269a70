package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order and payment status values assigned at creation.
const (
	OrderStatusPending   = "pending"
	PaymentStatusPending = "pending"
)

// CartLineItem is one priced line of a cart.
type CartLineItem struct {
	ProductID string          `json:"productId"`
	VariantID *string         `json:"variantId,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// OrderTotals holds the derived monetary totals of an order.
type OrderTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Address is the shipping destination of an order.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Order represents a customer order.
type Order struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	PromoCode       *string     `json:"promoCode,omitempty" db:"promo_code"`
	RedemptionID    *uuid.UUID  `json:"-" db:"redemption_id"`
	Totals          OrderTotals `json:"totals"`
	Status          string      `json:"status" db:"status"`
	PaymentStatus   string      `json:"paymentStatus" db:"payment_status"`
	ShippingAddress Address     `json:"shippingAddress" db:"shipping_address"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID        uuid.UUID       `json:"-" db:"id"`
	OrderID   uuid.UUID       `json:"-" db:"order_id"`
	ProductID string          `json:"productId" db:"product_id"`
	VariantID *string         `json:"variantId,omitempty" db:"variant_id"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Quantity  int             `json:"quantity" db:"quantity"`
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	Items           []CartLineItem   `json:"items"`
	PromoCode       *string          `json:"promoCode,omitempty"`
	ShippingAddress Address          `json:"shippingAddress"`
	ExpectedTotal   *decimal.Decimal `json:"expectedTotal,omitempty"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	ID            uuid.UUID `json:"id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`

	// Amounts are rendered with exactly two decimals.
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`

	PromoCode       *string             `json:"promoCode,omitempty"`
	ShippingAddress Address             `json:"shippingAddress"`
	Items           []OrderLineResponse `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// OrderLineResponse is the API view of an order item.
type OrderLineResponse struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	UnitPrice string  `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	LineTotal string  `json:"lineTotal"`
}

// LineTotal returns unitPrice * quantity rounded to cents.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// NewOrderResponse builds the API view of a persisted order.
func NewOrderResponse(order *Order, items []OrderItem) *OrderResponse {
	lines := make([]OrderLineResponse, len(items))
	for i, item := range items {
		lines[i] = OrderLineResponse{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal().StringFixed(2),
		}
	}

	return &OrderResponse{
		ID:              order.ID,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		Subtotal:        order.Totals.Subtotal.StringFixed(2),
		Discount:        order.Totals.Discount.StringFixed(2),
		Shipping:        order.Totals.Shipping.StringFixed(2),
		Tax:             order.Totals.Tax.StringFixed(2),
		Total:           order.Totals.Total.StringFixed(2),
		PromoCode:       order.PromoCode,
		ShippingAddress: order.ShippingAddress,
		Items:           lines,
		CreatedAt:       order.CreatedAt,
	}
}
