package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// CatalogStore implements storage.CatalogStore using PostgreSQL.
type CatalogStore struct {
	pool *Pool
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(pool *Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CatalogStore = (*CatalogStore)(nil)

const catalogColumns = `
	entry_id, brand, name, category, brand_aliases, name_aliases,
	price_new_usd, price_used_usd, specs, created_at
`

// Upsert inserts or replaces a catalog entry.
func (s *CatalogStore) Upsert(ctx context.Context, e *domain.CatalogEntry) error {
	if e == nil || e.EntryID == "" || e.Brand == "" || e.Name == "" || !e.Category.Valid() {
		return storage.ErrInvalidInput
	}

	specs, err := json.Marshal(e.Specs)
	if err != nil {
		return fmt.Errorf("marshal specs: %w", err)
	}

	query := `
		INSERT INTO catalog_entries (` + catalogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (entry_id) DO UPDATE SET
			brand = EXCLUDED.brand,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			brand_aliases = EXCLUDED.brand_aliases,
			name_aliases = EXCLUDED.name_aliases,
			price_new_usd = EXCLUDED.price_new_usd,
			price_used_usd = EXCLUDED.price_used_usd,
			specs = EXCLUDED.specs,
			created_at = EXCLUDED.created_at
	`

	_, err = s.pool.Exec(ctx, query,
		e.EntryID, e.Brand, e.Name, string(e.Category),
		stringSlice(e.BrandAliases), stringSlice(e.NameAliases),
		e.PriceNewUSD, e.PriceUsedUSD, specs, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert catalog entry: %w", err)
	}
	return nil
}

// GetAll retrieves the full catalog, ordered by entry_id ASC.
func (s *CatalogStore) GetAll(ctx context.Context) ([]*domain.CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_entries ORDER BY entry_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.CatalogEntry
	for rows.Next() {
		e, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}
	return entries, nil
}

// scanCatalogEntry scans a single row into a CatalogEntry.
func scanCatalogEntry(row pgx.Row) (*domain.CatalogEntry, error) {
	var e domain.CatalogEntry
	var category string
	var specs []byte

	err := row.Scan(
		&e.EntryID, &e.Brand, &e.Name, &category, &e.BrandAliases,
		&e.NameAliases, &e.PriceNewUSD, &e.PriceUsedUSD, &specs,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Category = domain.Category(category)
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &e.Specs); err != nil {
			return nil, fmt.Errorf("unmarshal specs: %w", err)
		}
	}
	if len(e.BrandAliases) == 0 {
		e.BrandAliases = nil
	}
	if len(e.NameAliases) == 0 {
		e.NameAliases = nil
	}
	return &e, nil
}

func stringSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
