package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

func TestCandidateStore_MergeCreatesAndFolds(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandidateStore(pool)

	created, err := store.Merge(ctx, &domain.ComponentCandidate{
		Brand:        "Sennheiser",
		Model:        "HD 620S",
		MinPriceUSD:  ptr(299),
		MaxPriceUSD:  ptr(299),
		ListingIDs:   []string{"l1"},
		ListingCount: 1,
		QualityScore: 75,
		Status:       domain.CandidatePending,
		FirstSeenAt:  1000,
		LastSeenAt:   1000,
	})
	require.NoError(t, err)
	assert.True(t, created)

	cat := domain.CategoryHeadphone
	created, err = store.Merge(ctx, &domain.ComponentCandidate{
		Brand:            "sennheiser",
		Model:            "hd 620s",
		InferredCategory: &cat,
		MinPriceUSD:      ptr(250),
		MaxPriceUSD:      ptr(320),
		ListingIDs:       []string{"l2"},
		ListingCount:     1,
		QualityScore:     60,
		Status:           domain.CandidatePending,
		FirstSeenAt:      2000,
		LastSeenAt:       2000,
	})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetByKey(ctx, "sennheiser|hd 620s")
	require.NoError(t, err)
	assert.Equal(t, "Sennheiser", got.Brand)
	assert.Equal(t, 2, got.ListingCount)
	assert.ElementsMatch(t, []string{"l1", "l2"}, got.ListingIDs)
	assert.Equal(t, 250, *got.MinPriceUSD)
	assert.Equal(t, 320, *got.MaxPriceUSD)
	assert.Equal(t, 75, got.QualityScore)
	require.NotNil(t, got.InferredCategory)
	assert.Equal(t, domain.CategoryHeadphone, *got.InferredCategory)
	assert.Equal(t, int64(1000), got.FirstSeenAt)
	assert.Equal(t, int64(2000), got.LastSeenAt)

	_, err = store.GetByKey(ctx, "missing|model")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCandidateStore_MergeValidation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandidateStore(pool)

	_, err := store.Merge(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.Merge(ctx, &domain.ComponentCandidate{Brand: "Sennheiser"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCandidateStore_GetPendingOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandidateStore(pool)

	seed := []*domain.ComponentCandidate{
		{Brand: "Moondrop", Model: "May", ListingIDs: []string{"a"}, ListingCount: 1, Status: domain.CandidatePending},
		{Brand: "Schiit", Model: "Midgard", ListingIDs: []string{"b", "c"}, ListingCount: 2, Status: domain.CandidatePending},
		{Brand: "Fiio", Model: "K11", ListingIDs: []string{"d"}, ListingCount: 1, Status: domain.CandidateApproved},
	}
	for _, c := range seed {
		_, err := store.Merge(ctx, c)
		require.NoError(t, err)
	}

	pending, err := store.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Schiit", pending[0].Brand)
	assert.Equal(t, "Moondrop", pending[1].Brand)
}
