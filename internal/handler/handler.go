package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// retryAfterSeconds is advertised with a 503 on a contended redemption.
const retryAfterSeconds = 1

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Str("error_code", code).
		Str("error", message).
		Int("status", status).
		Str("correlation_id", middleware.CorrelationIDFromContext(r.Context())).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: middleware.CorrelationIDFromContext(r.Context()),
	})
}

// writeDomainError maps err to its HTTP status and error code. Unknown errors
// become a generic 500 without leaking their text.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	status, code, message := classify(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("unhandled error")
	}
	writeError(w, r, status, code, message, logger)
}

func classify(err error) (int, string, string) {
	var (
		invalidAtCheckout *model.PromoInvalidAtCheckoutError
		mismatch          *model.OrderTotalMismatchError
		notActive         *model.PromoNotActiveError
		belowMinimum      *model.PromoBelowMinimumError
		validation        *model.ValidationError
	)

	// Checkout errors wrap promo causes, so they are matched first.
	switch {
	case errors.As(err, &invalidAtCheckout):
		return http.StatusConflict, invalidAtCheckout.ErrorCode(), invalidAtCheckout.Error()
	case errors.As(err, &mismatch):
		return http.StatusConflict, mismatch.ErrorCode(), mismatch.Error()
	case errors.Is(err, model.ErrPromoRedeemConflict):
		return http.StatusServiceUnavailable, model.ErrCodePromoRedeemConflict, model.ErrPromoRedeemConflict.Error()
	case errors.Is(err, model.ErrPromoNotFound):
		return http.StatusNotFound, model.ErrCodePromoNotFound, model.ErrPromoNotFound.Error()
	case errors.Is(err, model.ErrOrderNotFound):
		return http.StatusNotFound, model.ErrCodeOrderNotFound, model.ErrOrderNotFound.Error()
	case errors.As(err, &notActive):
		return http.StatusUnprocessableEntity, notActive.ErrorCode(), notActive.Error()
	case errors.As(err, &belowMinimum):
		return http.StatusUnprocessableEntity, belowMinimum.ErrorCode(), belowMinimum.Error()
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.ErrorCode(), validation.Error()
	case errors.Is(err, model.ErrInvalidQuantity):
		return http.StatusBadRequest, model.ErrCodeInvalidQuantity, model.ErrInvalidQuantity.Error()
	case errors.Is(err, model.ErrInvalidPrice):
		return http.StatusBadRequest, model.ErrCodeInvalidPrice, model.ErrInvalidPrice.Error()
	case errors.Is(err, model.ErrProductNotFound):
		return http.StatusBadRequest, model.ErrCodeProductNotFound, model.ErrProductNotFound.Error()
	default:
		return http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error"
	}
}
