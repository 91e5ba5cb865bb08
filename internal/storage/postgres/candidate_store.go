package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

const candidateColumns = `
	merge_key, brand, model, inferred_category, min_price_usd,
	max_price_usd, listing_ids, listing_count, quality_score, status,
	first_seen_at, last_seen_at
`

// Merge inserts a candidate or folds it into the existing row with the
// same merge key. The fold runs under a row lock so concurrent merges
// of the same key serialize instead of losing sightings.
func (s *CandidateStore) Merge(ctx context.Context, c *domain.ComponentCandidate) (bool, error) {
	if c == nil || c.Brand == "" || c.Model == "" {
		return false, storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	key := c.MergeKey()
	row := tx.QueryRow(ctx, `
		SELECT `+candidateColumns+`
		FROM component_candidates
		WHERE merge_key = $1
		FOR UPDATE
	`, key)

	existing, err := scanCandidate(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := insertCandidate(ctx, tx, key, c); err != nil {
			return false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return false, fmt.Errorf("commit merge: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("lock candidate: %w", err)
	}

	existing.MergeFrom(c)
	if err := updateCandidate(ctx, tx, key, existing); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit merge: %w", err)
	}
	return false, nil
}

// GetByKey retrieves a candidate by merge key. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByKey(ctx context.Context, key string) (*domain.ComponentCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM component_candidates WHERE merge_key = $1`

	row := s.pool.QueryRow(ctx, query, key)
	c, err := scanCandidate(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get candidate by key: %w", err)
	}
	return c, nil
}

// GetPending retrieves candidates awaiting review, ordered by
// listing_count DESC, merge key ASC for equal counts.
func (s *CandidateStore) GetPending(ctx context.Context) ([]*domain.ComponentCandidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM component_candidates
		WHERE status = $1
		ORDER BY listing_count DESC, merge_key ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.CandidatePending))
	if err != nil {
		return nil, fmt.Errorf("get pending candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*domain.ComponentCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}
	return candidates, nil
}

func insertCandidate(ctx context.Context, tx pgx.Tx, key string, c *domain.ComponentCandidate) error {
	query := `
		INSERT INTO component_candidates (` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := tx.Exec(ctx, query,
		key, c.Brand, c.Model, categoryStr(c.InferredCategory),
		c.MinPriceUSD, c.MaxPriceUSD, listingIDs(c), c.ListingCount,
		c.QualityScore, string(c.Status), c.FirstSeenAt, c.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func updateCandidate(ctx context.Context, tx pgx.Tx, key string, c *domain.ComponentCandidate) error {
	query := `
		UPDATE component_candidates SET
			inferred_category = $2,
			min_price_usd = $3,
			max_price_usd = $4,
			listing_ids = $5,
			listing_count = $6,
			quality_score = $7,
			first_seen_at = $8,
			last_seen_at = $9
		WHERE merge_key = $1
	`

	_, err := tx.Exec(ctx, query,
		key, categoryStr(c.InferredCategory), c.MinPriceUSD,
		c.MaxPriceUSD, listingIDs(c), c.ListingCount, c.QualityScore,
		c.FirstSeenAt, c.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}
	return nil
}

// scanCandidate scans a single row into a ComponentCandidate.
func scanCandidate(row pgx.Row) (*domain.ComponentCandidate, error) {
	var c domain.ComponentCandidate
	var mergeKey, status string
	var category *string

	err := row.Scan(
		&mergeKey, &c.Brand, &c.Model, &category, &c.MinPriceUSD,
		&c.MaxPriceUSD, &c.ListingIDs, &c.ListingCount, &c.QualityScore,
		&status, &c.FirstSeenAt, &c.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.CandidateStatus(status)
	if category != nil {
		v := domain.Category(*category)
		c.InferredCategory = &v
	}
	if len(c.ListingIDs) == 0 {
		c.ListingIDs = nil
	}
	return &c, nil
}

func categoryStr(c *domain.Category) *string {
	if c == nil {
		return nil
	}
	v := string(*c)
	return &v
}

func listingIDs(c *domain.ComponentCandidate) []string {
	if c.ListingIDs == nil {
		return []string{}
	}
	return c.ListingIDs
}
