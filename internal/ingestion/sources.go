// Package ingestion pulls raw listings from marketplace sources. Each
// adapter normalizes its transport (stub fixtures, HTTP APIs, live
// WebSocket feeds) into domain.RawListing batches; all parsing and
// matching happens downstream.
package ingestion

import (
	"context"

	"hifi-market-lab/internal/domain"
)

// Source provides raw listings from one marketplace.
type Source interface {
	// Name identifies the source in stats, logs and listing rows.
	Name() string

	// Fetch returns listings posted or updated within [from, to]
	// (inclusive). Order is not guaranteed; the orchestrator sorts.
	Fetch(ctx context.Context, from, to int64) ([]*domain.RawListing, error)
}
