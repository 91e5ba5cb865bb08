package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

func TestCatalogStore_UpsertAndGetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCatalogStore(pool)

	hd600 := &domain.CatalogEntry{
		EntryID:      "sennheiser-hd600",
		Brand:        "Sennheiser",
		Name:         "HD 600",
		Category:     domain.CategoryHeadphone,
		BrandAliases: []string{"senn"},
		NameAliases:  []string{"HD600", "HD-600"},
		PriceNewUSD:  ptr(400),
		PriceUsedUSD: ptr(250),
		Specs:        map[string]string{"impedance": "300 ohm"},
		CreatedAt:    1000,
	}
	modi := &domain.CatalogEntry{
		EntryID:   "schiit-modi-3",
		Brand:     "Schiit",
		Name:      "Modi 3",
		Category:  domain.CategoryDAC,
		CreatedAt: 1000,
	}

	require.NoError(t, store.Upsert(ctx, modi))
	require.NoError(t, store.Upsert(ctx, hd600))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "schiit-modi-3", all[0].EntryID)
	assert.Equal(t, hd600, all[1])

	// Upsert replaces the existing entry.
	hd600.PriceUsedUSD = ptr(230)
	require.NoError(t, store.Upsert(ctx, hd600))

	all, err = store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 230, *all[1].PriceUsedUSD)
}

func TestCatalogStore_UpsertValidation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCatalogStore(pool)

	assert.ErrorIs(t, store.Upsert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &domain.CatalogEntry{
		EntryID: "x", Brand: "Schiit", Name: "Modi 3", Category: "toaster",
	}), storage.ErrInvalidInput)
}
