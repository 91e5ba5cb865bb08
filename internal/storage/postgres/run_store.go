package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, started_at, finished_at, dry_run, source_stats,
	duplicates_removed, expired, archived, errors, final
`

// Append adds a finished run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Append(ctx context.Context, r *domain.AggregationRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	stats, err := json.Marshal(r.SourceStats)
	if err != nil {
		return fmt.Errorf("marshal source stats: %w", err)
	}

	errList := r.Errors
	if errList == nil {
		errList = []string{}
	}

	query := `
		INSERT INTO aggregation_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.StartedAt, r.FinishedAt, r.DryRun, stats,
		r.DuplicatesRemoved, r.Expired, r.Archived, errList,
		string(r.Final),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.AggregationRun, error) {
	query := `SELECT ` + runColumns + ` FROM aggregation_runs WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// GetLatest retrieves the most recently started run.
func (s *RunStore) GetLatest(ctx context.Context) (*domain.AggregationRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM aggregation_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	return r, nil
}

// scanRun scans a single row into an AggregationRun.
func scanRun(row pgx.Row) (*domain.AggregationRun, error) {
	var r domain.AggregationRun
	var stats []byte
	var final string

	err := row.Scan(
		&r.RunID, &r.StartedAt, &r.FinishedAt, &r.DryRun, &stats,
		&r.DuplicatesRemoved, &r.Expired, &r.Archived, &r.Errors, &final,
	)
	if err != nil {
		return nil, err
	}

	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &r.SourceStats); err != nil {
			return nil, fmt.Errorf("unmarshal source stats: %w", err)
		}
	}
	if len(r.Errors) == 0 {
		r.Errors = nil
	}
	r.Final = domain.RunState(final)
	return &r, nil
}
