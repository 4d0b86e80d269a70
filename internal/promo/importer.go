package promo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ImportResult summarises a seed import.
type ImportResult struct {
	Files    int
	Loaded   int
	Upserted int
	Rejected int
}

// Importer loads promo seed files and upserts their definitions.
type Importer struct {
	loader Loader
	store  Upserter
	logger zerolog.Logger
}

// NewImporter creates a new seed importer.
func NewImporter(loader Loader, store Upserter, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		store:  store,
		logger: logger.With().Str("component", "promo-importer").Logger(),
	}
}

// Import loads every file concurrently and upserts the merged definitions.
// When a code appears in several files the definition from the later file
// wins. Invalid definitions are skipped and counted as rejected; any load or
// storage failure aborts the import.
func (i *Importer) Import(ctx context.Context, filePaths []string) (ImportResult, error) {
	result := ImportResult{Files: len(filePaths)}
	if len(filePaths) == 0 {
		return result, nil
	}

	sets := make([]*Set, len(filePaths))

	g, gctx := errgroup.WithContext(ctx)
	for idx, path := range filePaths {
		g.Go(func() error {
			set, err := i.loader.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to load promo seed file %s: %w", path, err)
			}
			sets[idx] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i.logger.Error().Err(err).Msg("promo seed import aborted")
		return result, err
	}

	merged := NewSet(64)
	for _, set := range sets {
		merged.Merge(set)
	}
	result.Loaded = merged.Size()

	for _, p := range merged.Promos() {
		if err := p.Validate(); err != nil {
			i.logger.Warn().Err(err).Str("promo_code", p.Code).Msg("skipping invalid promo definition")
			result.Rejected++
			continue
		}

		if err := i.store.Upsert(ctx, &p); err != nil {
			return result, fmt.Errorf("failed to import promo %s: %w", p.Code, err)
		}
		result.Upserted++
	}

	i.logger.Info().
		Int("files", result.Files).
		Int("loaded", result.Loaded).
		Int("upserted", result.Upserted).
		Int("rejected", result.Rejected).
		Msg("promo seed import complete")

	return result, nil
}
