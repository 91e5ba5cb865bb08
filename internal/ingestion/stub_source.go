package ingestion

import (
	"context"

	"hifi-market-lab/internal/domain"
)

// StubSource serves fixture listings from memory. Used in tests and
// dry runs.
type StubSource struct {
	name     string
	listings []*domain.RawListing
	err      error
}

// NewStubSource creates a StubSource named name serving listings.
func NewStubSource(name string, listings []*domain.RawListing) *StubSource {
	return &StubSource{name: name, listings: listings}
}

// NewFailingStubSource creates a StubSource whose Fetch always fails.
func NewFailingStubSource(name string, err error) *StubSource {
	return &StubSource{name: name, err: err}
}

// Name identifies the source.
func (s *StubSource) Name() string { return s.name }

// Fetch returns the fixture listings posted within [from, to].
func (s *StubSource) Fetch(_ context.Context, from, to int64) ([]*domain.RawListing, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.RawListing
	for _, l := range s.listings {
		if l.PostedAt >= from && l.PostedAt <= to {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Verify interface compliance at compile time.
var _ Source = (*StubSource)(nil)
