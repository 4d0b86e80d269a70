package repository

import (
	"context"
	"testing"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_ValidateProductsExist(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger := zerolog.Nop()
	repo := NewProductRepository(pool, logger)

	seedProducts(t, pool, "P001", "P002", "P003")

	tests := []struct {
		name      string
		ids       []string
		expectErr bool
	}{
		{
			name:      "All products exist",
			ids:       []string{"P001", "P002", "P003"},
			expectErr: false,
		},
		{
			name:      "Subset of products exist",
			ids:       []string{"P001", "P002"},
			expectErr: false,
		},
		{
			name:      "Duplicate IDs",
			ids:       []string{"P001", "P001", "P002"},
			expectErr: false,
		},
		{
			name:      "Some products do not exist",
			ids:       []string{"P001", "P999"},
			expectErr: true,
		},
		{
			name:      "No products exist",
			ids:       []string{"P998", "P999"},
			expectErr: true,
		},
		{
			name:      "Empty ID list",
			ids:       []string{},
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			err := repo.ValidateProductsExist(ctx, tt.ids)

			if tt.expectErr {
				require.Error(t, err)
				assert.Equal(t, model.ErrProductNotFound, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestProductRepository_ErrorPaths(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	seedProducts(t, pool, "P001")

	// Close the pool to simulate database errors
	pool.Close()

	err := repo.ValidateProductsExist(context.Background(), []string{"P001"})

	require.Error(t, err)
	assert.NotEqual(t, model.ErrProductNotFound, err)
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, distinct([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, distinct(nil))
}
