package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Postgres error codes treated as transient write conflicts.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// RedeemConfig bounds the retries of AtomicRedeem on write conflicts.
type RedeemConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DefaultRedeemConfig returns the default retry bounds.
func DefaultRedeemConfig() RedeemConfig {
	return RedeemConfig{
		MaxAttempts:  3,
		RetryBackoff: 10 * time.Millisecond,
	}
}

// promoRepository implements PromoRepository using PostgreSQL.
type promoRepository struct {
	pool   *pgxpool.Pool
	config RedeemConfig
	logger zerolog.Logger
}

// NewPromoRepository creates a new PostgreSQL-backed promo repository.
func NewPromoRepository(pool *pgxpool.Pool, config RedeemConfig, logger zerolog.Logger) PromoRepository {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &promoRepository{
		pool:   pool,
		config: config,
		logger: logger.With().Str("repository", "promo").Logger(),
	}
}

const promoColumns = `
	id, code, discount_type, value, minimum_amount, maximum_discount,
	usage_limit, used_count, valid_from, valid_until, is_active,
	created_at, updated_at`

// GetByCode retrieves a promo by code, case-insensitively.
func (r *promoRepository) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	normalized := model.NormalizeCode(code)
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = $1`

	var p model.PromoCode
	err := r.pool.QueryRow(ctx, query, normalized).Scan(
		&p.ID,
		&p.Code,
		&p.Type,
		&p.Value,
		&p.MinimumAmount,
		&p.MaximumDiscount,
		&p.UsageLimit,
		&p.UsedCount,
		&p.ValidFrom,
		&p.ValidUntil,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("promo_code", normalized).Msg("promo not found")
			return nil, model.ErrPromoNotFound
		}
		r.logger.Error().Err(err).Str("promo_code", normalized).Msg("failed to query promo")
		return nil, fmt.Errorf("failed to query promo: %w", err)
	}

	return &p, nil
}

// AtomicRedeem consumes one usage slot with a single conditional update.
func (r *promoRepository) AtomicRedeem(ctx context.Context, promoID uuid.UUID) (*model.Redemption, error) {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		redemption, err := r.redeemOnce(ctx, promoID)
		if err == nil {
			r.logger.Debug().
				Str("promo_id", promoID.String()).
				Str("redemption_id", redemption.ID.String()).
				Int("used_count", redemption.UsedCount).
				Int("attempt", attempt).
				Msg("promo redeemed")
			return redemption, nil
		}

		if !isWriteConflict(err) {
			return nil, err
		}

		lastErr = err
		r.logger.Warn().
			Err(err).
			Str("promo_id", promoID.String()).
			Int("attempt", attempt).
			Msg("write conflict while redeeming promo")

		if attempt == r.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * r.config.RetryBackoff):
		}
	}

	r.logger.Error().
		Err(lastErr).
		Str("promo_id", promoID.String()).
		Int("attempts", r.config.MaxAttempts).
		Msg("giving up redeeming promo")

	return nil, model.ErrPromoRedeemConflict
}

func (r *promoRepository) redeemOnce(ctx context.Context, promoID uuid.UUID) (redemption *model.Redemption, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	// The WHERE clause is re-checked against the latest row version by
	// Postgres, so concurrent redeemers can never push used_count past the limit.
	redeemQuery := `
		UPDATE promo_codes
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
		RETURNING used_count
	`

	var usedCount int
	err = tx.QueryRow(ctx, redeemQuery, promoID).Scan(&usedCount)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to redeem promo: %w", err)
		}

		var exists bool
		if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM promo_codes WHERE id = $1)`, promoID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check promo: %w", err)
		}
		if !exists {
			err = model.ErrPromoNotFound
			return nil, err
		}
		err = model.ErrPromoLimitReached
		return nil, err
	}

	redemption = &model.Redemption{
		ID:        uuid.New(),
		PromoID:   promoID,
		Status:    model.RedemptionRedeemed,
		UsedCount: usedCount,
	}

	ledgerQuery := `
		INSERT INTO promo_redemptions (id, promo_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, ledgerQuery, redemption.ID, promoID, redemption.Status).Scan(&redemption.RedeemedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return redemption, nil
}

// CompensateRollback flips the redemption to rolled_back and releases its slot.
func (r *promoRepository) CompensateRollback(ctx context.Context, redemptionID uuid.UUID) (rolledBack bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	ledgerQuery := `
		UPDATE promo_redemptions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING promo_id
	`

	var promoID uuid.UUID
	err = tx.QueryRow(ctx, ledgerQuery, redemptionID, model.RedemptionRolledBack, model.RedemptionRedeemed).Scan(&promoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
			if cErr := tx.Commit(ctx); cErr != nil {
				return false, fmt.Errorf("failed to commit transaction: %w", cErr)
			}
			r.logger.Debug().
				Str("redemption_id", redemptionID.String()).
				Msg("redemption already rolled back or unknown")
			return false, nil
		}
		return false, fmt.Errorf("failed to mark redemption rolled back: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE promo_codes
		SET used_count = used_count - 1, updated_at = NOW()
		WHERE id = $1 AND used_count > 0
	`, promoID)
	if err != nil {
		return false, fmt.Errorf("failed to release promo usage: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit rollback: %w", err)
	}

	r.logger.Info().
		Str("redemption_id", redemptionID.String()).
		Str("promo_id", promoID.String()).
		Msg("promo redemption rolled back")

	return true, nil
}

// Upsert creates a promo or updates its definition by code.
func (r *promoRepository) Upsert(ctx context.Context, promo *model.PromoCode) error {
	promo.Code = model.NormalizeCode(promo.Code)
	if err := promo.Validate(); err != nil {
		return err
	}
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}

	query := `
		INSERT INTO promo_codes (
			id, code, discount_type, value, minimum_amount, maximum_discount,
			usage_limit, used_count, valid_from, valid_until, is_active,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			minimum_amount = EXCLUDED.minimum_amount,
			maximum_discount = EXCLUDED.maximum_discount,
			usage_limit = CASE
				WHEN EXCLUDED.usage_limit IS NULL THEN NULL
				ELSE GREATEST(EXCLUDED.usage_limit, promo_codes.used_count)
			END,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id, usage_limit, used_count, created_at, updated_at
	`

	requestedLimit := promo.UsageLimit

	err := r.pool.QueryRow(ctx, query,
		promo.ID,
		promo.Code,
		promo.Type,
		promo.Value,
		promo.MinimumAmount,
		promo.MaximumDiscount,
		promo.UsageLimit,
		promo.UsedCount,
		promo.ValidFrom,
		promo.ValidUntil,
		promo.IsActive,
	).Scan(&promo.ID, &promo.UsageLimit, &promo.UsedCount, &promo.CreatedAt, &promo.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("promo_code", promo.Code).Msg("failed to upsert promo")
		return fmt.Errorf("failed to upsert promo %s: %w", promo.Code, err)
	}

	if usageLimitRaised(requestedLimit, promo.UsageLimit) {
		r.logger.Warn().
			Str("promo_code", promo.Code).
			Int("requested_limit", *requestedLimit).
			Int("used_count", promo.UsedCount).
			Msg("usage limit below used count, clamped")
	}

	r.logger.Debug().Str("promo_code", promo.Code).Msg("promo upserted")

	return nil
}

// isWriteConflict reports whether err is a transient Postgres write conflict.
func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	default:
		return false
	}
}
