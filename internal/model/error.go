package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON            = "INVALID_JSON"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
	ErrCodeInvalidPrice           = "INVALID_PRICE"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound          = "ORDER_NOT_FOUND"
	ErrCodePromoNotFound          = "PROMO_NOT_FOUND"
	ErrCodePromoNotActive         = "PROMO_NOT_ACTIVE"
	ErrCodePromoBelowMinimum      = "PROMO_BELOW_MINIMUM"
	ErrCodePromoRedeemConflict    = "PROMO_REDEEM_CONFLICT"
	ErrCodePromoInvalidAtCheckout = "PROMO_INVALID_AT_CHECKOUT"
	ErrCodeOrderTotalMismatch     = "ORDER_TOTAL_MISMATCH"
	ErrCodeUnauthorised           = "UNAUTHORIZED"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// Coded is implemented by every error that maps to a distinct API error code.
type Coded interface {
	error
	ErrorCode() string
}

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// ErrorCode returns the API error code.
func (e *DomainError) ErrorCode() string {
	return e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidPrice      = NewDomainError(ErrCodeInvalidPrice, "Unit price must not be negative")
	ErrProductNotFound   = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrPromoNotFound     = NewDomainError(ErrCodePromoNotFound, "Promo code not found")
	ErrPromoNotActive    = NewDomainError(ErrCodePromoNotActive, "Promo code is not active")
	ErrPromoBelowMinimum = NewDomainError(ErrCodePromoBelowMinimum, "Cart subtotal is below the promo minimum")

	// ErrPromoRedeemConflict is the only promo error that may be retried automatically.
	ErrPromoRedeemConflict = NewDomainError(ErrCodePromoRedeemConflict, "Promo code is busy, please retry")

	// ErrPromoLimitReached is the storage outcome of a redemption against an exhausted code.
	ErrPromoLimitReached = errors.New("promo usage limit reached")
)

// ValidationError reports a malformed checkout request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorCode returns the API error code.
func (e *ValidationError) ErrorCode() string {
	return ErrCodeInvalidRequest
}

// NewValidationError creates a validation error for a request field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PromoNotActiveError is returned when the derived status of a promo is not active.
type PromoNotActiveError struct {
	Code   string
	Reason PromoStatus
}

func (e *PromoNotActiveError) Error() string {
	return fmt.Sprintf("promo code %s is not active: %s", e.Code, e.Reason)
}

// ErrorCode returns the API error code.
func (e *PromoNotActiveError) ErrorCode() string {
	return ErrCodePromoNotActive
}

// Is lets errors.Is match ErrPromoNotActive.
func (e *PromoNotActiveError) Is(target error) bool {
	return target == ErrPromoNotActive
}

// PromoBelowMinimumError is returned when the cart subtotal is under the promo minimum.
type PromoBelowMinimumError struct {
	Code     string
	Required decimal.Decimal
	Actual   decimal.Decimal
}

func (e *PromoBelowMinimumError) Error() string {
	return fmt.Sprintf("promo code %s requires a subtotal of at least %s, got %s",
		e.Code, e.Required.StringFixed(2), e.Actual.StringFixed(2))
}

// ErrorCode returns the API error code.
func (e *PromoBelowMinimumError) ErrorCode() string {
	return ErrCodePromoBelowMinimum
}

// Is lets errors.Is match ErrPromoBelowMinimum.
func (e *PromoBelowMinimumError) Is(target error) bool {
	return target == ErrPromoBelowMinimum
}

// PromoInvalidAtCheckoutError is returned when a promo fails re-validation or
// redemption at checkout. It is not retryable with the same code.
type PromoInvalidAtCheckoutError struct {
	Code  string
	Cause error
}

func (e *PromoInvalidAtCheckoutError) Error() string {
	return fmt.Sprintf("promo code %s can no longer be applied: %v", e.Code, e.Cause)
}

// ErrorCode returns the API error code.
func (e *PromoInvalidAtCheckoutError) ErrorCode() string {
	return ErrCodePromoInvalidAtCheckout
}

func (e *PromoInvalidAtCheckoutError) Unwrap() error {
	return e.Cause
}

// OrderTotalMismatchError is returned when the client-submitted total differs
// from the server-computed total by more than the rounding tolerance.
type OrderTotalMismatchError struct {
	Submitted decimal.Decimal
	Computed  decimal.Decimal
}

func (e *OrderTotalMismatchError) Error() string {
	return fmt.Sprintf("submitted total %s does not match computed total %s",
		e.Submitted.StringFixed(2), e.Computed.StringFixed(2))
}

// ErrorCode returns the API error code.
func (e *OrderTotalMismatchError) ErrorCode() string {
	return ErrCodeOrderTotalMismatch
}
