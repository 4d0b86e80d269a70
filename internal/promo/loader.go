package promo

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// seedRecord is one line of a promo seed file.
type seedRecord struct {
	Code            string           `json:"code"`
	Type            string           `json:"type"`
	Value           decimal.Decimal  `json:"value"`
	MinimumAmount   *decimal.Decimal `json:"minimumAmount"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount"`
	UsageLimit      *int             `json:"usageLimit"`
	ValidFrom       time.Time        `json:"validFrom"`
	ValidUntil      time.Time        `json:"validUntil"`
	IsActive        *bool            `json:"isActive"`
}

func (r seedRecord) toPromo() model.PromoCode {
	p := model.PromoCode{
		Code:            model.NormalizeCode(r.Code),
		Type:            model.DiscountType(strings.ToLower(strings.TrimSpace(r.Type))),
		Value:           r.Value,
		MinimumAmount:   decimal.Zero,
		MaximumDiscount: r.MaximumDiscount,
		UsageLimit:      r.UsageLimit,
		ValidFrom:       r.ValidFrom.UTC(),
		ValidUntil:      r.ValidUntil.UTC(),
		IsActive:        true,
	}
	if r.MinimumAmount != nil {
		p.MinimumAmount = *r.MinimumAmount
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return p
}

// fileLoader implements Loader for reading gzipped seed files.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based promo seed loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "promo-loader").Logger(),
	}
}

// Load reads a gzipped JSON-lines seed file from the local file system.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Set, error) {
	l.logger.Info().Str("file", filePath).Msg("loading promo seed file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open promo seed file")
		return nil, fmt.Errorf("failed to open promo seed file %s: %w", filePath, err)
	}
	defer file.Close()

	set, err := decodeSeed(ctx, file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read promo seed file")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("promos_loaded", set.Size()).
		Msg("promo seed file loaded successfully")

	return set, nil
}

// decodeSeed reads gzipped JSON lines from r. Blank lines and lines starting
// with '#' are skipped.
func decodeSeed(ctx context.Context, r io.Reader, source string) (*Set, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	set := NewSet(64)

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec seedRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: invalid promo definition: %w", source, lineNo, err)
		}
		set.Add(rec.toPromo())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading promo seed file %s: %w", source, err)
	}

	return set, nil
}
