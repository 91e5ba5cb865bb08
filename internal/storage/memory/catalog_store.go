package memory

import (
	"context"
	"sort"
	"sync"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// CatalogStore is an in-memory implementation of storage.CatalogStore.
type CatalogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CatalogEntry // keyed by entry_id
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		data: make(map[string]*domain.CatalogEntry),
	}
}

// Upsert inserts or replaces a catalog entry.
func (s *CatalogStore) Upsert(_ context.Context, e *domain.CatalogEntry) error {
	if e == nil || e.EntryID == "" || e.Brand == "" || e.Name == "" || !e.Category.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[e.EntryID] = cloneEntry(e)
	return nil
}

// GetAll retrieves the full catalog, ordered by entry_id ASC.
func (s *CatalogStore) GetAll(_ context.Context) ([]*domain.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CatalogEntry, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, cloneEntry(e))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EntryID < result[j].EntryID
	})

	return result, nil
}

func cloneEntry(e *domain.CatalogEntry) *domain.CatalogEntry {
	cp := *e
	cp.BrandAliases = append([]string(nil), e.BrandAliases...)
	cp.NameAliases = append([]string(nil), e.NameAliases...)
	cp.PriceNewUSD = cloneInt(e.PriceNewUSD)
	cp.PriceUsedUSD = cloneInt(e.PriceUsedUSD)
	if e.Specs != nil {
		cp.Specs = make(map[string]string, len(e.Specs))
		for k, v := range e.Specs {
			cp.Specs[k] = v
		}
	}
	return &cp
}

// Verify interface compliance at compile time.
var _ storage.CatalogStore = (*CatalogStore)(nil)
