package promo

import (
	"context"

	"storefront/internal/model"
)

// Lookup retrieves promo codes by code.
type Lookup interface {
	GetByCode(ctx context.Context, code string) (*model.PromoCode, error)
}

// Upserter creates or redefines promo codes.
type Upserter interface {
	Upsert(ctx context.Context, promo *model.PromoCode) error
}

// Loader defines the interface for loading promo seed files.
type Loader interface {
	// Load reads a gzipped JSON-lines seed file and returns its promo definitions.
	Load(ctx context.Context, filePath string) (*Set, error)
}
