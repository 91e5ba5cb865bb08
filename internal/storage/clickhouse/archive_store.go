package clickhouse

import (
	"context"
	"fmt"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// ArchiveStore implements storage.ArchiveStore using ClickHouse. Rows
// land in a ReplacingMergeTree keyed by (source, listing_id), so
// re-archiving the same listing replaces instead of duplicating.
type ArchiveStore struct {
	conn *Conn
}

// NewArchiveStore creates a new ArchiveStore.
func NewArchiveStore(conn *Conn) *ArchiveStore {
	return &ArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ArchiveStore = (*ArchiveStore)(nil)

// Archive bulk-writes listings to cold storage.
func (s *ArchiveStore) Archive(ctx context.Context, listings []*domain.PersistedListing) error {
	if len(listings) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO listings_archive (
			listing_id, source, url, title, component_id, price_usd,
			condition, seller, seller_rep, bundle_group_id,
			bundle_position, bundle_size, bundle_total_usd, match_score,
			match_ambiguous, status, validation_flags, action, posted_at,
			first_seen_at, last_seen_at, archived_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare archive batch: %w", err)
	}

	for _, l := range listings {
		flags := l.ValidationFlags
		if flags == nil {
			flags = []string{}
		}
		var archivedAt int64
		if l.ArchivedAt != nil {
			archivedAt = *l.ArchivedAt
		} else {
			archivedAt = l.LastSeenAt
		}

		err = batch.Append(
			l.ListingID, l.Source, l.URL, l.Title, l.ComponentID,
			toNullableInt32(l.PriceUSD), l.Condition, l.Seller,
			toNullableInt32(l.SellerRep), l.BundleGroupID,
			int32(l.BundlePosition), int32(l.BundleSize),
			toNullableInt32(l.BundleTotalUSD), l.MatchScore,
			l.MatchAmbiguous, string(l.Status), flags, string(l.Action),
			l.PostedAt, l.FirstSeenAt, l.LastSeenAt, archivedAt,
		)
		if err != nil {
			return fmt.Errorf("append to archive batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send archive batch: %w", err)
	}
	return nil
}

// GetBySource retrieves archived listings of a source, ordered by
// archived_at then listing_id. Used by reporting and tests.
func (s *ArchiveStore) GetBySource(ctx context.Context, source string) ([]*domain.PersistedListing, error) {
	query := `
		SELECT
			listing_id, source, url, title, component_id, price_usd,
			condition, seller, seller_rep, bundle_group_id,
			bundle_position, bundle_size, bundle_total_usd, match_score,
			match_ambiguous, status, validation_flags, action, posted_at,
			first_seen_at, last_seen_at, archived_at
		FROM listings_archive FINAL
		WHERE source = ?
		ORDER BY archived_at ASC, listing_id ASC
	`

	rows, err := s.conn.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("query archive by source: %w", err)
	}
	defer rows.Close()

	var listings []*domain.PersistedListing
	for rows.Next() {
		var l domain.PersistedListing
		var priceUSD, sellerRep, bundleTotal *int32
		var bundlePosition, bundleSize int32
		var status, action string
		var archivedAt int64

		err := rows.Scan(
			&l.ListingID, &l.Source, &l.URL, &l.Title, &l.ComponentID,
			&priceUSD, &l.Condition, &l.Seller, &sellerRep,
			&l.BundleGroupID, &bundlePosition, &bundleSize, &bundleTotal,
			&l.MatchScore, &l.MatchAmbiguous, &status,
			&l.ValidationFlags, &action, &l.PostedAt, &l.FirstSeenAt,
			&l.LastSeenAt, &archivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}

		l.PriceUSD = fromNullableInt32(priceUSD)
		l.SellerRep = fromNullableInt32(sellerRep)
		l.BundleTotalUSD = fromNullableInt32(bundleTotal)
		l.BundlePosition = int(bundlePosition)
		l.BundleSize = int(bundleSize)
		l.Status = domain.ListingStatus(status)
		l.Action = domain.ValidationAction(action)
		l.ArchivedAt = &archivedAt
		if len(l.ValidationFlags) == 0 {
			l.ValidationFlags = nil
		}
		listings = append(listings, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}
	return listings, nil
}

// RecordPrices bulk-writes one run's price observations.
func (s *ArchiveStore) RecordPrices(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_observations (
			run_id, component_id, listing_id, source, condition,
			price_usd, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare price batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.RunID, o.ComponentID, o.ListingID, o.Source, o.Condition,
			int32(o.PriceUSD), o.ObservedAt,
		)
		if err != nil {
			return fmt.Errorf("append to price batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send price batch: %w", err)
	}
	return nil
}

// GetPricesByComponent retrieves a component's price observations in
// observation order. Used by reporting and tests.
func (s *ArchiveStore) GetPricesByComponent(ctx context.Context, componentID string) ([]*domain.PriceObservation, error) {
	query := `
		SELECT run_id, component_id, listing_id, source, condition,
		       price_usd, observed_at
		FROM price_observations
		WHERE component_id = ?
		ORDER BY observed_at ASC, listing_id ASC
	`

	rows, err := s.conn.Query(ctx, query, componentID)
	if err != nil {
		return nil, fmt.Errorf("query price observations: %w", err)
	}
	defer rows.Close()

	var obs []*domain.PriceObservation
	for rows.Next() {
		var o domain.PriceObservation
		var price int32

		err := rows.Scan(&o.RunID, &o.ComponentID, &o.ListingID, &o.Source,
			&o.Condition, &price, &o.ObservedAt)
		if err != nil {
			return nil, fmt.Errorf("scan price observation: %w", err)
		}
		o.PriceUSD = int(price)
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price observations: %w", err)
	}
	return obs, nil
}

func toNullableInt32(p *int) *int32 {
	if p == nil {
		return nil
	}
	v := int32(*p)
	return &v
}

func fromNullableInt32(p *int32) *int {
	if p == nil {
		return nil
	}
	v := int(*p)
	return &v
}
