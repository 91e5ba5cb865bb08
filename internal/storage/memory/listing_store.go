package memory

import (
	"context"
	"sort"
	"sync"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// ListingStore is an in-memory implementation of storage.ListingStore.
type ListingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PersistedListing // keyed by listing_id
}

// NewListingStore creates a new in-memory listing store.
func NewListingStore() *ListingStore {
	return &ListingStore{
		data: make(map[string]*domain.PersistedListing),
	}
}

// Upsert inserts a listing or refreshes the existing row. The original
// first_seen_at survives a refresh.
func (s *ListingStore) Upsert(_ context.Context, l *domain.PersistedListing) (bool, error) {
	if l == nil || l.ListingID == "" || l.URL == "" || l.Source == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneListing(l)
	if existing, ok := s.data[l.ListingID]; ok {
		cp.FirstSeenAt = existing.FirstSeenAt
		s.data[l.ListingID] = cp
		return false, nil
	}
	s.data[l.ListingID] = cp
	return true, nil
}

// GetByID retrieves a listing by its ID. Returns ErrNotFound if not exists.
func (s *ListingStore) GetByID(_ context.Context, listingID string) (*domain.PersistedListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.data[listingID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneListing(l), nil
}

// GetByURL retrieves every row sharing a listing URL, ordered by bundle
// position then listing_id.
func (s *ListingStore) GetByURL(_ context.Context, url string) ([]*domain.PersistedListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PersistedListing
	for _, l := range s.data {
		if l.URL == url {
			result = append(result, cloneListing(l))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BundlePosition != result[j].BundlePosition {
			return result[i].BundlePosition < result[j].BundlePosition
		}
		return result[i].ListingID < result[j].ListingID
	})

	return result, nil
}

// GetBySource retrieves all listings of a source, ordered by first_seen_at ASC.
func (s *ListingStore) GetBySource(_ context.Context, source string) ([]*domain.PersistedListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PersistedListing
	for _, l := range s.data {
		if l.Source == source {
			result = append(result, cloneListing(l))
		}
	}

	sortByFirstSeen(result)
	return result, nil
}

// GetRecent retrieves listings last seen at or after since.
func (s *ListingStore) GetRecent(_ context.Context, since int64) ([]*domain.PersistedListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PersistedListing
	for _, l := range s.data {
		if l.LastSeenAt >= since {
			result = append(result, cloneListing(l))
		}
	}

	sortByFirstSeen(result)
	return result, nil
}

// GetActiveOlderThan retrieves available, unarchived listings last seen
// before cutoff.
func (s *ListingStore) GetActiveOlderThan(_ context.Context, cutoff int64) ([]*domain.PersistedListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PersistedListing
	for _, l := range s.data {
		if l.Status == domain.StatusAvailable && l.ArchivedAt == nil && l.LastSeenAt < cutoff {
			result = append(result, cloneListing(l))
		}
	}

	sortByFirstSeen(result)
	return result, nil
}

// GetUnarchivedOlderThan retrieves unarchived listings of any status
// last seen before cutoff.
func (s *ListingStore) GetUnarchivedOlderThan(_ context.Context, cutoff int64) ([]*domain.PersistedListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PersistedListing
	for _, l := range s.data {
		if l.ArchivedAt == nil && l.LastSeenAt < cutoff {
			result = append(result, cloneListing(l))
		}
	}

	sortByFirstSeen(result)
	return result, nil
}

// SeenIndex returns url -> latest last_seen_at for one source.
func (s *ListingStore) SeenIndex(_ context.Context, source string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int64)
	for _, l := range s.data {
		if l.Source != source {
			continue
		}
		if seen, ok := index[l.URL]; !ok || l.LastSeenAt > seen {
			index[l.URL] = l.LastSeenAt
		}
	}
	return index, nil
}

// UpdateStatus sets a listing's status and bumps last_seen_at.
func (s *ListingStore) UpdateStatus(_ context.Context, listingID string, status domain.ListingStatus, seenAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.data[listingID]
	if !ok {
		return storage.ErrNotFound
	}
	l.Status = status
	if seenAt > l.LastSeenAt {
		l.LastSeenAt = seenAt
	}
	return nil
}

// MarkArchived stamps archived_at.
func (s *ListingStore) MarkArchived(_ context.Context, listingID string, archivedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.data[listingID]
	if !ok {
		return storage.ErrNotFound
	}
	l.ArchivedAt = &archivedAt
	return nil
}

// Delete removes a listing row.
func (s *ListingStore) Delete(_ context.Context, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[listingID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, listingID)
	return nil
}

func sortByFirstSeen(listings []*domain.PersistedListing) {
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].FirstSeenAt != listings[j].FirstSeenAt {
			return listings[i].FirstSeenAt < listings[j].FirstSeenAt
		}
		return listings[i].ListingID < listings[j].ListingID
	})
}

// cloneListing copies a listing including its pointer and slice fields,
// so callers never share memory with the store.
func cloneListing(l *domain.PersistedListing) *domain.PersistedListing {
	cp := *l
	cp.ComponentID = cloneStr(l.ComponentID)
	cp.PriceUSD = cloneInt(l.PriceUSD)
	cp.SellerRep = cloneInt(l.SellerRep)
	cp.BundleGroupID = cloneStr(l.BundleGroupID)
	cp.BundleTotalUSD = cloneInt(l.BundleTotalUSD)
	cp.ArchivedAt = cloneInt64(l.ArchivedAt)
	cp.ValidationFlags = append([]string(nil), l.ValidationFlags...)
	return &cp
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Verify interface compliance at compile time.
var _ storage.ListingStore = (*ListingStore)(nil)
