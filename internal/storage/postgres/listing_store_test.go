package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

func baseListing(id, url string) *domain.PersistedListing {
	return &domain.PersistedListing{
		ListingID:      id,
		Source:         "headfi",
		URL:            url,
		Title:          "[WTS] Sennheiser HD600",
		ComponentID:    ptr("sennheiser-hd600"),
		PriceUSD:       ptr(550),
		Condition:      "used",
		Seller:         "alice",
		SellerRep:      ptr(12),
		MatchScore:     0.92,
		MatchAmbiguous: false,
		Status:         domain.StatusAvailable,
		Action:         domain.ActionAccept,
		PostedAt:       1000,
		FirstSeenAt:    1100,
		LastSeenAt:     1100,
	}
}

func TestListingStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewListingStore(pool)

	l := baseListing("l1", "https://example.com/p/1")
	l.ValidationFlags = []string{"price_low"}
	l.BundleGroupID = ptr("grp1")
	l.BundlePosition = 1
	l.BundleSize = 2
	l.BundleTotalUSD = ptr(600)

	created, err := store.Upsert(ctx, l)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, l, got)

	// A refresh keeps the original first_seen_at.
	l2 := baseListing("l1", "https://example.com/p/1")
	l2.PriceUSD = ptr(500)
	l2.FirstSeenAt = 2000
	l2.LastSeenAt = 2000

	created, err = store.Upsert(ctx, l2)
	require.NoError(t, err)
	assert.False(t, created)

	got, err = store.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 500, *got.PriceUSD)
	assert.Equal(t, int64(1100), got.FirstSeenAt)
	assert.Equal(t, int64(2000), got.LastSeenAt)
	assert.Nil(t, got.ValidationFlags)
	assert.Nil(t, got.BundleGroupID)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListingStore_UpsertValidation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewListingStore(pool)

	_, err := store.Upsert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	l := baseListing("l1", "")
	_, err = store.Upsert(ctx, l)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestListingStore_GetByURL_BundleOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewListingStore(pool)

	second := baseListing("l2", "https://example.com/p/1")
	second.BundlePosition = 2
	first := baseListing("l1", "https://example.com/p/1")
	first.BundlePosition = 1
	other := baseListing("l3", "https://example.com/p/2")

	for _, l := range []*domain.PersistedListing{second, first, other} {
		_, err := store.Upsert(ctx, l)
		require.NoError(t, err)
	}

	rows, err := store.GetByURL(ctx, "https://example.com/p/1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "l1", rows[0].ListingID)
	assert.Equal(t, "l2", rows[1].ListingID)
}

func TestListingStore_SeenIndex(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewListingStore(pool)

	a := baseListing("a", "https://example.com/p/1")
	a.LastSeenAt = 1000
	b := baseListing("b", "https://example.com/p/1")
	b.LastSeenAt = 3000
	c := baseListing("c", "https://example.com/p/2")
	c.LastSeenAt = 2000
	foreign := baseListing("d", "https://example.com/p/3")
	foreign.Source = "avexchange"

	for _, l := range []*domain.PersistedListing{a, b, c, foreign} {
		_, err := store.Upsert(ctx, l)
		require.NoError(t, err)
	}

	index, err := store.SeenIndex(ctx, "headfi")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"https://example.com/p/1": 3000,
		"https://example.com/p/2": 2000,
	}, index)
}

func TestListingStore_StatusAndSweeps(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewListingStore(pool)

	err := store.UpdateStatus(ctx, "missing", domain.StatusSold, 100)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stale := baseListing("stale", "https://example.com/p/1")
	stale.LastSeenAt = 1000
	sold := baseListing("sold", "https://example.com/p/2")
	sold.Status = domain.StatusSold
	sold.LastSeenAt = 1500
	fresh := baseListing("fresh", "https://example.com/p/3")
	fresh.LastSeenAt = 9000

	for _, l := range []*domain.PersistedListing{stale, sold, fresh} {
		_, err := store.Upsert(ctx, l)
		require.NoError(t, err)
	}

	// Only the available row below the cutoff is a stale candidate.
	active, err := store.GetActiveOlderThan(ctx, 2000)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "stale", active[0].ListingID)

	// The cold-storage sweep sees any status.
	old, err := store.GetUnarchivedOlderThan(ctx, 2000)
	require.NoError(t, err)
	require.Len(t, old, 2)
	assert.Equal(t, "stale", old[0].ListingID)
	assert.Equal(t, "sold", old[1].ListingID)

	require.NoError(t, store.MarkArchived(ctx, "sold", 5000))

	old, err = store.GetUnarchivedOlderThan(ctx, 2000)
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, "stale", old[0].ListingID)

	got, err := store.GetByID(ctx, "sold")
	require.NoError(t, err)
	require.NotNil(t, got.ArchivedAt)
	assert.Equal(t, int64(5000), *got.ArchivedAt)

	// UpdateStatus only moves last_seen_at forward.
	require.NoError(t, store.UpdateStatus(ctx, "stale", domain.StatusExpired, 500))
	got, err = store.GetByID(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
	assert.Equal(t, int64(1000), got.LastSeenAt)
}

func TestListingStore_RecentAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewListingStore(pool)

	older := baseListing("older", "https://example.com/p/1")
	older.FirstSeenAt = 1000
	older.LastSeenAt = 1000
	newer := baseListing("newer", "https://example.com/p/2")
	newer.FirstSeenAt = 3000
	newer.LastSeenAt = 3000

	for _, l := range []*domain.PersistedListing{newer, older} {
		_, err := store.Upsert(ctx, l)
		require.NoError(t, err)
	}

	recent, err := store.GetRecent(ctx, 2000)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "newer", recent[0].ListingID)

	require.NoError(t, store.Delete(ctx, "older"))
	assert.ErrorIs(t, store.Delete(ctx, "older"), storage.ErrNotFound)

	bySource, err := store.GetBySource(ctx, "headfi")
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, "newer", bySource[0].ListingID)
}
