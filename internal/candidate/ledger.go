package candidate

import (
	"context"
	"sort"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// Ledger accumulates candidate sightings over one pipeline run and
// merges repeats in memory, so a model spotted thirty times in a run
// costs one store write, not thirty. Safe for concurrent Observe from
// source workers.
type Ledger struct {
	mu    sync.Mutex
	cache *gocache.Cache
	store storage.CandidateStore
}

// NewLedger creates a Ledger flushing into store.
func NewLedger(store storage.CandidateStore) *Ledger {
	return &Ledger{
		cache: gocache.New(gocache.NoExpiration, 0),
		store: store,
	}
}

// Observe folds one sighting into the run-scoped cache.
func (ld *Ledger) Observe(c *domain.ComponentCandidate) {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	key := c.MergeKey()
	if v, ok := ld.cache.Get(key); ok {
		v.(*domain.ComponentCandidate).MergeFrom(c)
		return
	}
	cp := *c
	cp.ListingIDs = append([]string(nil), c.ListingIDs...)
	ld.cache.Set(key, &cp, gocache.NoExpiration)
}

// Size is the number of distinct merge keys seen this run.
func (ld *Ledger) Size() int {
	return ld.cache.ItemCount()
}

// Flush merges the cached candidates into the store in deterministic
// key order and resets the cache. Returns how many store rows were
// newly created.
func (ld *Ledger) Flush(ctx context.Context) (int, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	items := ld.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	created := 0
	for _, k := range keys {
		c := items[k].Object.(*domain.ComponentCandidate)
		isNew, err := ld.store.Merge(ctx, c)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	ld.cache.Flush()
	return created, nil
}
