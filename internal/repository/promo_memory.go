package repository

import (
	"context"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// memoryPromoRepository is a process-local PromoRepository. A single mutex
// makes the conditional increment indivisible, matching the Postgres store.
type memoryPromoRepository struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*model.PromoCode
	idByCode    map[string]uuid.UUID
	redemptions map[uuid.UUID]*model.Redemption
	logger      zerolog.Logger
}

// NewMemoryPromoRepository creates an in-memory promo repository.
func NewMemoryPromoRepository(logger zerolog.Logger) PromoRepository {
	return &memoryPromoRepository{
		byID:        make(map[uuid.UUID]*model.PromoCode),
		idByCode:    make(map[string]uuid.UUID),
		redemptions: make(map[uuid.UUID]*model.Redemption),
		logger:      logger.With().Str("repository", "promo_memory").Logger(),
	}
}

func (r *memoryPromoRepository) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.idByCode[model.NormalizeCode(code)]
	if !ok {
		return nil, model.ErrPromoNotFound
	}

	p := *r.byID[id]
	return &p, nil
}

func (r *memoryPromoRepository) AtomicRedeem(ctx context.Context, promoID uuid.UUID) (*model.Redemption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[promoID]
	if !ok {
		return nil, model.ErrPromoNotFound
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return nil, model.ErrPromoLimitReached
	}

	now := time.Now().UTC()
	p.UsedCount++
	p.UpdatedAt = now

	redemption := &model.Redemption{
		ID:         uuid.New(),
		PromoID:    promoID,
		Status:     model.RedemptionRedeemed,
		UsedCount:  p.UsedCount,
		RedeemedAt: now,
	}
	r.redemptions[redemption.ID] = redemption

	r.logger.Debug().
		Str("promo_id", promoID.String()).
		Int("used_count", p.UsedCount).
		Msg("promo redeemed")

	out := *redemption
	return &out, nil
}

func (r *memoryPromoRepository) CompensateRollback(ctx context.Context, redemptionID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	redemption, ok := r.redemptions[redemptionID]
	if !ok || redemption.Status != model.RedemptionRedeemed {
		return false, nil
	}
	redemption.Status = model.RedemptionRolledBack

	if p, ok := r.byID[redemption.PromoID]; ok && p.UsedCount > 0 {
		p.UsedCount--
		p.UpdatedAt = time.Now().UTC()
	}

	r.logger.Info().
		Str("redemption_id", redemptionID.String()).
		Msg("promo redemption rolled back")

	return true, nil
}

func (r *memoryPromoRepository) Upsert(ctx context.Context, promo *model.PromoCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	promo.Code = model.NormalizeCode(promo.Code)
	if err := promo.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if id, ok := r.idByCode[promo.Code]; ok {
		existing := r.byID[id]
		requestedLimit := promo.UsageLimit
		promo.ID = existing.ID
		promo.UsedCount = existing.UsedCount
		promo.UsageLimit = clampUsageLimit(promo.UsageLimit, existing.UsedCount)
		if usageLimitRaised(requestedLimit, promo.UsageLimit) {
			r.logger.Warn().
				Str("promo_code", promo.Code).
				Int("requested_limit", *requestedLimit).
				Int("used_count", promo.UsedCount).
				Msg("usage limit below used count, clamped")
		}
		promo.CreatedAt = existing.CreatedAt
		promo.UpdatedAt = now
		stored := *promo
		r.byID[id] = &stored
		return nil
	}

	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	promo.CreatedAt = now
	promo.UpdatedAt = now

	stored := *promo
	r.byID[promo.ID] = &stored
	r.idByCode[promo.Code] = promo.ID

	return nil
}
