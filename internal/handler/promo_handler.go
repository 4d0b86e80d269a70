package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PromoHandler serves advisory promo lookups.
type PromoHandler struct {
	service service.PromoService
	logger  zerolog.Logger
}

// NewPromoHandler creates a new promo handler.
func NewPromoHandler(service service.PromoService, logger zerolog.Logger) *PromoHandler {
	return &PromoHandler{
		service: service,
		logger:  logger.With().Str("handler", "promo").Logger(),
	}
}

// GetByCode handles GET /api/promos/{code}[?subtotal=] requests. The result
// is an estimate; checkout re-evaluates against the live record.
func (h *PromoHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var subtotal *decimal.Decimal
	if raw := r.URL.Query().Get("subtotal"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidRequest, "subtotal must be a decimal amount", h.logger)
			return
		}
		subtotal = &d
	}

	quote, err := h.service.Quote(r.Context(), code, subtotal)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.NewPromoResponse(quote))
}
