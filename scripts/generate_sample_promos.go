package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
)

// seedRecord mirrors one line of a promo seed file.
type seedRecord struct {
	Code            string           `json:"code"`
	Type            string           `json:"type"`
	Value           decimal.Decimal  `json:"value"`
	MinimumAmount   *decimal.Decimal `json:"minimumAmount,omitempty"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount,omitempty"`
	UsageLimit      *int             `json:"usageLimit,omitempty"`
	ValidFrom       time.Time        `json:"validFrom"`
	ValidUntil      time.Time        `json:"validUntil"`
	IsActive        *bool            `json:"isActive,omitempty"`
}

// generateSamplePromos creates sample promo seed files for local runs.
// promos2.gz redefines SAVE5 with a higher minimum; loaded after promos1.gz
// its definition wins. BROKEN is rejected on import (percentage above 100).
func main() {
	dataDir := "data/promos"

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	from := now.AddDate(0, -1, 0)
	until := now.AddDate(1, 0, 0)

	files := map[string][]seedRecord{
		"promos1.gz": {
			{Code: "WELCOME10", Type: "percentage", Value: dec("10"), UsageLimit: intPtr(1000), ValidFrom: from, ValidUntil: until},
			{Code: "SAVE5", Type: "fixed", Value: dec("5.00"), MinimumAmount: decPtr("20.00"), ValidFrom: from, ValidUntil: until},
			{Code: "HALFOFF", Type: "percentage", Value: dec("50"), MaximumDiscount: decPtr("25.00"), UsageLimit: intPtr(10), ValidFrom: from, ValidUntil: until},
		},
		"promos2.gz": {
			{Code: "SAVE5", Type: "fixed", Value: dec("5.00"), MinimumAmount: decPtr("30.00"), ValidFrom: from, ValidUntil: until},
			{Code: "LASTYEAR", Type: "percentage", Value: dec("15"), ValidFrom: from.AddDate(-1, 0, 0), ValidUntil: from},
			{Code: "PAUSED", Type: "fixed", Value: dec("10.00"), IsActive: boolPtr(false), ValidFrom: from, ValidUntil: until},
			{Code: "BROKEN", Type: "percentage", Value: dec("150"), ValidFrom: from, ValidUntil: until},
		},
	}

	for filename, records := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := createSeedFile(filePath, records); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d promos\n", filePath, len(records))
	}

	fmt.Println("\nSample promo seed files created successfully!")
	fmt.Println("Set PROMO_SEED_FILES=data/promos/promos1.gz,data/promos/promos2.gz to import them.")
}

func createSeedFile(filePath string, records []seedRecord) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	enc := json.NewEncoder(gzipWriter)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write promo %s: %w", r.Code, err)
		}
	}

	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

func boolPtr(b bool) *bool {
	return &b
}
