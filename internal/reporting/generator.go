package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// defaultWindow is how far back (seconds) the market overview looks.
const defaultWindow = 48 * 60 * 60

// Generator produces reports from stored data.
type Generator struct {
	listingStore   storage.ListingStore
	candidateStore storage.CandidateStore
	runStore       storage.RunStore
	catalogStore   storage.CatalogStore
	window         int64
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	listingStore storage.ListingStore,
	candidateStore storage.CandidateStore,
	runStore storage.RunStore,
	catalogStore storage.CatalogStore,
) *Generator {
	return &Generator{
		listingStore:   listingStore,
		candidateStore: candidateStore,
		runStore:       runStore,
		catalogStore:   catalogStore,
		window:         defaultWindow,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithWindow sets the market overview lookback in seconds.
func (g *Generator) WithWindow(seconds int64) *Generator {
	if seconds > 0 {
		g.window = seconds
	}
	return g
}

// Generate produces a complete report for the latest run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	report := &Report{GeneratedAt: g.now()}

	run, err := g.runStore.GetLatest(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// A report without any recorded run still shows the market.
	case err != nil:
		return nil, fmt.Errorf("load latest run: %w", err)
	default:
		report.Run = summarizeRun(run)
		report.Sources = sourceRows(run)
	}

	entries, err := g.catalogStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	byEntryID := make(map[string]*domain.CatalogEntry, len(entries))
	for _, e := range entries {
		byEntryID[e.EntryID] = e
	}

	since := g.now().Unix() - g.window
	recent, err := g.listingStore.GetRecent(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load recent listings: %w", err)
	}

	report.Market = marketRows(recent, byEntryID)
	report.Flagged = flaggedRows(recent)

	pending, err := g.candidateStore.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending candidates: %w", err)
	}
	report.PendingCandidates = candidateRows(pending)

	return report, nil
}

func summarizeRun(run *domain.AggregationRun) RunSummary {
	return RunSummary{
		RunID:             run.RunID,
		StartedAt:         run.StartedAt,
		FinishedAt:        run.FinishedAt,
		DryRun:            run.DryRun,
		Final:             string(run.Final),
		TotalFetched:      run.TotalFetched(),
		DuplicatesRemoved: run.DuplicatesRemoved,
		Expired:           run.Expired,
		Archived:          run.Archived,
		Errors:            run.Errors,
	}
}

func sourceRows(run *domain.AggregationRun) []SourceRow {
	rows := make([]SourceRow, len(run.SourceStats))
	for i, s := range run.SourceStats {
		rows[i] = SourceRow{
			Source:      s.Source,
			Fetched:     s.Fetched,
			Skipped:     s.Skipped,
			Matched:     s.Matched,
			Bundles:     s.Bundles,
			Candidates:  s.Candidates,
			Rejected:    s.Rejected,
			SoldUpdates: s.SoldUpdates,
			Errors:      s.Errors,
			Failed:      s.Failed,
		}
	}
	return rows
}

// marketRows groups recent listings by matched component. Rejected
// rows are excluded; their prices would skew the stats.
func marketRows(recent []*domain.PersistedListing, byEntryID map[string]*domain.CatalogEntry) []MarketRow {
	type group struct {
		row    MarketRow
		prices []int
	}
	groups := make(map[string]*group)

	for _, l := range recent {
		if l.ComponentID == nil || l.Action == domain.ActionReject {
			continue
		}
		id := *l.ComponentID

		grp, ok := groups[id]
		if !ok {
			grp = &group{row: MarketRow{ComponentID: id}}
			if entry := byEntryID[id]; entry != nil {
				grp.row.Brand = entry.Brand
				grp.row.Name = entry.Name
				grp.row.Category = string(entry.Category)
			}
			groups[id] = grp
		}

		grp.row.Listings++
		if l.Status == domain.StatusAvailable {
			grp.row.Available++
		}
		if l.MatchAmbiguous {
			grp.row.Ambiguous++
		}
		if l.PriceUSD != nil {
			grp.prices = append(grp.prices, *l.PriceUSD)
		}
	}

	rows := make([]MarketRow, 0, len(groups))
	for _, grp := range groups {
		if len(grp.prices) > 0 {
			sort.Ints(grp.prices)
			grp.row.MinPriceUSD = grp.prices[0]
			grp.row.MaxPriceUSD = grp.prices[len(grp.prices)-1]
			grp.row.MedianPriceUSD = median(grp.prices)
		}
		rows = append(rows, grp.row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ComponentID < rows[j].ComponentID
	})
	return rows
}

func flaggedRows(recent []*domain.PersistedListing) []FlaggedRow {
	var rows []FlaggedRow
	for _, l := range recent {
		if l.Action == domain.ActionAccept {
			continue
		}
		rows = append(rows, FlaggedRow{
			ListingID: l.ListingID,
			Source:    l.Source,
			Title:     l.Title,
			PriceUSD:  l.PriceUSD,
			Action:    string(l.Action),
			Flags:     l.ValidationFlags,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ListingID < rows[j].ListingID
	})
	return rows
}

func candidateRows(pending []*domain.ComponentCandidate) []CandidateRow {
	rows := make([]CandidateRow, len(pending))
	for i, c := range pending {
		rows[i] = CandidateRow{
			Brand:        c.Brand,
			Model:        c.Model,
			Listings:     c.ListingCount,
			MinPriceUSD:  c.MinPriceUSD,
			MaxPriceUSD:  c.MaxPriceUSD,
			QualityScore: c.QualityScore,
		}
		if c.InferredCategory != nil {
			rows[i].Category = string(*c.InferredCategory)
		}
	}
	return rows
}

// median of a sorted slice; even lengths average the middle pair.
func median(sorted []int) int {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
