package promo

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestSeedFile creates a gzipped seed file with one line per entry.
func createTestSeedFile(t *testing.T, filename string, lines []string) string {
	t.Helper()

	filePath := filepath.Join(t.TempDir(), filename)

	file, err := os.Create(filePath)
	require.NoError(t, err)
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	for _, line := range lines {
		_, err := gzipWriter.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}

	return filePath
}

func seedLine(code, typ, value string) string {
	return fmt.Sprintf(
		`{"code":%q,"type":%q,"value":%q,"validFrom":"2026-01-01T00:00:00Z","validUntil":"2027-01-01T00:00:00Z"}`,
		code, typ, value,
	)
}

func TestFileLoader_Load_Success(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestSeedFile(t, "promos.jsonl.gz", []string{
		`{"code":"welcome10","type":"percentage","value":"10","maximumDiscount":"25.00","usageLimit":100,"validFrom":"2026-01-01T00:00:00Z","validUntil":"2027-01-01T00:00:00Z"}`,
		`{"code":"SAVE20","type":"FIXED","value":20,"minimumAmount":"100.00","isActive":false,"validFrom":"2026-01-01T00:00:00Z","validUntil":"2027-01-01T00:00:00Z"}`,
	})

	set, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	require.Equal(t, 2, set.Size())

	welcome, ok := set.Get("WELCOME10")
	require.True(t, ok)
	assert.Equal(t, model.DiscountPercentage, welcome.Type)
	assert.True(t, welcome.Value.Equal(dec("10")))
	assert.True(t, welcome.MinimumAmount.IsZero())
	require.NotNil(t, welcome.MaximumDiscount)
	assert.Equal(t, "25.00", welcome.MaximumDiscount.StringFixed(2))
	require.NotNil(t, welcome.UsageLimit)
	assert.Equal(t, 100, *welcome.UsageLimit)
	assert.True(t, welcome.IsActive)

	save, ok := set.Get("save20")
	require.True(t, ok)
	assert.Equal(t, model.DiscountFixed, save.Type)
	assert.Equal(t, "100.00", save.MinimumAmount.StringFixed(2))
	assert.Nil(t, save.UsageLimit)
	assert.False(t, save.IsActive)
}

func TestFileLoader_Load_SkipsBlankAndCommentLines(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestSeedFile(t, "promos.jsonl.gz", []string{
		"# spring campaign",
		"",
		seedLine("SPRING5", "fixed", "5"),
		"   ",
		seedLine("SPRING10", "percentage", "10"),
	})

	set, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	assert.Equal(t, 2, set.Size())
	assert.True(t, set.Contains("SPRING5"))
	assert.True(t, set.Contains("SPRING10"))
}

func TestFileLoader_Load_DuplicateCodesLastWins(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestSeedFile(t, "promos.jsonl.gz", []string{
		seedLine("DUP", "fixed", "5"),
		seedLine("dup", "fixed", "7"),
	})

	set, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	require.Equal(t, 1, set.Size())
	p, _ := set.Get("DUP")
	assert.True(t, p.Value.Equal(dec("7")))
}

func TestFileLoader_Load_MalformedLine(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestSeedFile(t, "promos.jsonl.gz", []string{
		seedLine("OK", "fixed", "5"),
		`{"code": "BROKEN",`,
	})

	set, err := loader.Load(context.Background(), filePath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Nil(t, set)
}

func TestFileLoader_Load_FileNotFound(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	set, err := loader.Load(context.Background(), "/nonexistent/promos.jsonl.gz")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open promo seed file")
	assert.Nil(t, set)
}

func TestFileLoader_Load_InvalidGzip(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := filepath.Join(t.TempDir(), "plain.jsonl.gz")
	require.NoError(t, os.WriteFile(filePath, []byte(seedLine("PLAIN", "fixed", "1")), 0o644))

	set, err := loader.Load(context.Background(), filePath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create gzip reader")
	assert.Nil(t, set)
}

func TestFileLoader_Load_ContextCancellation(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	lines := make([]string, 5000)
	for i := range lines {
		lines[i] = seedLine(fmt.Sprintf("CODE%05d", i), "fixed", "1")
	}
	filePath := createTestSeedFile(t, "large.jsonl.gz", lines)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set, err := loader.Load(ctx, filePath)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, set)
}

func TestFileLoader_Load_EmptyFile(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestSeedFile(t, "empty.jsonl.gz", nil)

	set, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	assert.Equal(t, 0, set.Size())
}

func TestDecodeSeed_ReportsSource(t *testing.T) {
	_, err := decodeSeed(context.Background(), strings.NewReader("not gzip"), "s3://bucket/key")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/key")
}
