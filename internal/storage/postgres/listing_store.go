package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// ListingStore implements storage.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *Pool
}

// NewListingStore creates a new ListingStore.
func NewListingStore(pool *Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ListingStore = (*ListingStore)(nil)

const listingColumns = `
	listing_id, source, url, title, component_id, price_usd, condition,
	seller, seller_rep, bundle_group_id, bundle_position, bundle_size,
	bundle_total_usd, match_score, match_ambiguous, status,
	validation_flags, action, posted_at, first_seen_at, last_seen_at,
	archived_at
`

// Upsert inserts a listing or refreshes the existing row. The original
// first_seen_at survives a refresh.
func (s *ListingStore) Upsert(ctx context.Context, l *domain.PersistedListing) (bool, error) {
	if l == nil || l.ListingID == "" || l.URL == "" || l.Source == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (listing_id) DO UPDATE SET
			source = EXCLUDED.source,
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			component_id = EXCLUDED.component_id,
			price_usd = EXCLUDED.price_usd,
			condition = EXCLUDED.condition,
			seller = EXCLUDED.seller,
			seller_rep = EXCLUDED.seller_rep,
			bundle_group_id = EXCLUDED.bundle_group_id,
			bundle_position = EXCLUDED.bundle_position,
			bundle_size = EXCLUDED.bundle_size,
			bundle_total_usd = EXCLUDED.bundle_total_usd,
			match_score = EXCLUDED.match_score,
			match_ambiguous = EXCLUDED.match_ambiguous,
			status = EXCLUDED.status,
			validation_flags = EXCLUDED.validation_flags,
			action = EXCLUDED.action,
			posted_at = EXCLUDED.posted_at,
			last_seen_at = EXCLUDED.last_seen_at,
			archived_at = EXCLUDED.archived_at
		RETURNING (xmax = 0)
	`

	flags := l.ValidationFlags
	if flags == nil {
		flags = []string{}
	}

	var created bool
	err := s.pool.QueryRow(ctx, query,
		l.ListingID, l.Source, l.URL, l.Title, l.ComponentID, l.PriceUSD,
		l.Condition, l.Seller, l.SellerRep, l.BundleGroupID,
		l.BundlePosition, l.BundleSize, l.BundleTotalUSD, l.MatchScore,
		l.MatchAmbiguous, string(l.Status), flags, string(l.Action),
		l.PostedAt, l.FirstSeenAt, l.LastSeenAt, l.ArchivedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert listing: %w", err)
	}
	return created, nil
}

// GetByID retrieves a listing by its ID. Returns ErrNotFound if not exists.
func (s *ListingStore) GetByID(ctx context.Context, listingID string) (*domain.PersistedListing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE listing_id = $1`

	row := s.pool.QueryRow(ctx, query, listingID)
	l, err := scanListing(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get listing by id: %w", err)
	}
	return l, nil
}

// GetByURL retrieves every row sharing a listing URL, ordered by bundle
// position then listing_id.
func (s *ListingStore) GetByURL(ctx context.Context, url string) ([]*domain.PersistedListing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE url = $1
		ORDER BY bundle_position ASC, listing_id ASC
	`

	rows, err := s.pool.Query(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("get listings by url: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// GetBySource retrieves all listings of a source, ordered by first_seen_at ASC.
func (s *ListingStore) GetBySource(ctx context.Context, source string) ([]*domain.PersistedListing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE source = $1
		ORDER BY first_seen_at ASC, listing_id ASC
	`

	rows, err := s.pool.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("get listings by source: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// GetRecent retrieves listings last seen at or after since.
func (s *ListingStore) GetRecent(ctx context.Context, since int64) ([]*domain.PersistedListing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE last_seen_at >= $1
		ORDER BY first_seen_at ASC, listing_id ASC
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("get recent listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// GetActiveOlderThan retrieves available, unarchived listings last seen
// before cutoff.
func (s *ListingStore) GetActiveOlderThan(ctx context.Context, cutoff int64) ([]*domain.PersistedListing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE status = $1 AND archived_at IS NULL AND last_seen_at < $2
		ORDER BY first_seen_at ASC, listing_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.StatusAvailable), cutoff)
	if err != nil {
		return nil, fmt.Errorf("get active listings older than cutoff: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// GetUnarchivedOlderThan retrieves unarchived listings of any status
// last seen before cutoff.
func (s *ListingStore) GetUnarchivedOlderThan(ctx context.Context, cutoff int64) ([]*domain.PersistedListing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE archived_at IS NULL AND last_seen_at < $1
		ORDER BY first_seen_at ASC, listing_id ASC
	`

	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("get unarchived listings older than cutoff: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// SeenIndex returns url -> latest last_seen_at for one source.
func (s *ListingStore) SeenIndex(ctx context.Context, source string) (map[string]int64, error) {
	query := `
		SELECT url, MAX(last_seen_at)
		FROM listings
		WHERE source = $1
		GROUP BY url
	`

	rows, err := s.pool.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("get seen index: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int64)
	for rows.Next() {
		var url string
		var seen int64
		if err := rows.Scan(&url, &seen); err != nil {
			return nil, fmt.Errorf("scan seen index row: %w", err)
		}
		index[url] = seen
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen index rows: %w", err)
	}
	return index, nil
}

// UpdateStatus sets a listing's status and bumps last_seen_at.
func (s *ListingStore) UpdateStatus(ctx context.Context, listingID string, status domain.ListingStatus, seenAt int64) error {
	query := `
		UPDATE listings
		SET status = $2, last_seen_at = GREATEST(last_seen_at, $3)
		WHERE listing_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, listingID, string(status), seenAt)
	if err != nil {
		return fmt.Errorf("update listing status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkArchived stamps archived_at.
func (s *ListingStore) MarkArchived(ctx context.Context, listingID string, archivedAt int64) error {
	query := `UPDATE listings SET archived_at = $2 WHERE listing_id = $1`

	tag, err := s.pool.Exec(ctx, query, listingID, archivedAt)
	if err != nil {
		return fmt.Errorf("mark listing archived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a listing row.
func (s *ListingStore) Delete(ctx context.Context, listingID string) error {
	query := `DELETE FROM listings WHERE listing_id = $1`

	tag, err := s.pool.Exec(ctx, query, listingID)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanListing scans a single row into a PersistedListing.
func scanListing(row pgx.Row) (*domain.PersistedListing, error) {
	var l domain.PersistedListing
	var status, action string

	err := row.Scan(
		&l.ListingID, &l.Source, &l.URL, &l.Title, &l.ComponentID,
		&l.PriceUSD, &l.Condition, &l.Seller, &l.SellerRep,
		&l.BundleGroupID, &l.BundlePosition, &l.BundleSize,
		&l.BundleTotalUSD, &l.MatchScore, &l.MatchAmbiguous, &status,
		&l.ValidationFlags, &action, &l.PostedAt, &l.FirstSeenAt,
		&l.LastSeenAt, &l.ArchivedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Status = domain.ListingStatus(status)
	l.Action = domain.ValidationAction(action)
	if len(l.ValidationFlags) == 0 {
		l.ValidationFlags = nil
	}
	return &l, nil
}

// scanListings scans multiple rows into a slice of PersistedListing.
func scanListings(rows pgx.Rows) ([]*domain.PersistedListing, error) {
	var listings []*domain.PersistedListing

	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listing rows: %w", err)
	}

	return listings, nil
}
