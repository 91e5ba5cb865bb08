// Package orchestrator coordinates one reconciliation pass over all
// marketplace sources: ingest and match per source, validate the recent
// window, remove cross-post duplicates, expire and archive stale rows,
// record the run.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hifi-market-lab/internal/bundle"
	"hifi-market-lab/internal/candidate"
	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/idhash"
	"hifi-market-lab/internal/ingestion"
	"hifi-market-lab/internal/match"
	"hifi-market-lab/internal/normalize"
	"hifi-market-lab/internal/observability"
	"hifi-market-lab/internal/storage"
	"hifi-market-lab/internal/validate"
)

// Default windows (seconds) and worker count.
const (
	defaultFetchWindow      = 24 * 60 * 60
	defaultValidationWindow = 48 * 60 * 60
	defaultStaleAfter       = 7 * 24 * 60 * 60
	defaultArchiveAfter     = 30 * 24 * 60 * 60
	defaultWorkers          = 4

	// dupPriceTolerance is the relative price gap two listings may have
	// and still count as the same cross-posted item.
	dupPriceTolerance = 0.10

	// dupTitleOverlap is the minimum shared-word fraction between two
	// listing titles for the same claim.
	dupTitleOverlap = 0.6
)

// Orchestrator runs the reconciliation pipeline.
type Orchestrator struct {
	listings   storage.ListingStore
	candidates storage.CandidateStore
	runs       storage.RunStore
	lock       storage.RunLockStore
	archive    storage.ArchiveStore
	catalog    storage.CatalogStore

	sources []ingestion.Source

	tunables   match.Tunables
	thresholds validate.Thresholds

	fetchWindow      int64
	validationWindow int64
	staleAfter       int64
	archiveAfter     int64
	workers          int
	dryRun           bool

	now func() int64
	log *logrus.Entry
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	ListingStore   storage.ListingStore
	CandidateStore storage.CandidateStore
	RunStore       storage.RunStore
	RunLockStore   storage.RunLockStore
	ArchiveStore   storage.ArchiveStore
	CatalogStore   storage.CatalogStore

	// Marketplace sources to ingest
	Sources []ingestion.Source

	// Scoring and validation constants; zero values get the defaults.
	Tunables   match.Tunables
	Thresholds validate.Thresholds

	// Windows in seconds; zero values get the defaults.
	FetchWindow      int64
	ValidationWindow int64
	StaleAfter       int64
	ArchiveAfter     int64

	// Workers bounds concurrent source ingestion.
	Workers int

	// DryRun computes everything but writes nothing except the run
	// record itself.
	DryRun bool

	Logger *logrus.Logger

	// Now overrides the clock in tests.
	Now func() int64
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Tunables.Threshold == 0 {
		opts.Tunables = match.DefaultTunables()
	}
	if opts.Thresholds.RejectRatio == 0 {
		opts.Thresholds = validate.DefaultThresholds()
	}
	if opts.FetchWindow == 0 {
		opts.FetchWindow = defaultFetchWindow
	}
	if opts.ValidationWindow == 0 {
		opts.ValidationWindow = defaultValidationWindow
	}
	if opts.StaleAfter == 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if opts.ArchiveAfter == 0 {
		opts.ArchiveAfter = defaultArchiveAfter
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().Unix() }
	}
	return &Orchestrator{
		listings:         opts.ListingStore,
		candidates:       opts.CandidateStore,
		runs:             opts.RunStore,
		lock:             opts.RunLockStore,
		archive:          opts.ArchiveStore,
		catalog:          opts.CatalogStore,
		sources:          opts.Sources,
		tunables:         opts.Tunables,
		thresholds:       opts.Thresholds,
		fetchWindow:      opts.FetchWindow,
		validationWindow: opts.ValidationWindow,
		staleAfter:       opts.StaleAfter,
		archiveAfter:     opts.ArchiveAfter,
		workers:          opts.Workers,
		dryRun:           opts.DryRun,
		now:              opts.Now,
		log:              opts.Logger.WithField("component", "orchestrator"),
	}
}

// Run executes one full reconciliation pass.
// Phases:
//  1. Per-source ingest and match (concurrent, one failure does not
//     stop the others)
//  2. Validate the recent window
//  3. Deduplicate cross-posts
//  4. Archive and expire stale listings
//  5. Record run stats
//
// The returned run record carries partial stats even when the pass
// fails; only the error return distinguishes the two.
func (o *Orchestrator) Run(ctx context.Context) (*domain.AggregationRun, error) {
	run := &domain.AggregationRun{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		DryRun:    o.dryRun,
	}
	log := o.log.WithField("run_id", run.RunID)

	if err := o.lock.Acquire(ctx, run.RunID, run.StartedAt); err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	defer func() {
		if err := o.lock.Release(context.WithoutCancel(ctx), run.RunID); err != nil {
			log.WithError(err).Error("release run lock")
		}
	}()

	entries, err := o.catalog.GetAll(ctx)
	if err != nil {
		return o.fail(ctx, run, fmt.Errorf("load catalog: %w", err))
	}
	index := match.NewIndex(entries)
	matcher := match.NewMatcher(index, o.tunables)
	extractor := bundle.NewExtractor(matcher)
	detector := candidate.NewDetector(index)
	ledger := candidate.NewLedger(o.candidates)
	byEntryID := make(map[string]*domain.CatalogEntry, len(entries))
	for _, e := range entries {
		byEntryID[e.EntryID] = e
	}
	log.WithField("catalog_entries", len(entries)).Info("run started")

	o.runIngest(ctx, run, extractor, detector, ledger)

	observed := ledger.Size()
	if !o.dryRun {
		created, err := ledger.Flush(ctx)
		if err != nil {
			run.AddError(fmt.Sprintf("flush candidates: %v", err))
		}
		observability.RecordCandidates(observed, created)
		log.WithFields(logrus.Fields{"observed": observed, "created": created}).Info("candidates flushed")
	}

	if err := o.runValidation(ctx, run, byEntryID); err != nil {
		return o.fail(ctx, run, err)
	}
	if err := o.runDedup(ctx, run); err != nil {
		return o.fail(ctx, run, err)
	}
	if err := o.runArchival(ctx, run); err != nil {
		return o.fail(ctx, run, err)
	}

	run.FinishedAt = o.now()
	run.Final = domain.RunDone
	if err := o.runs.Append(ctx, run); err != nil {
		run.AddError(fmt.Sprintf("record run: %v", err))
		log.WithError(err).Error("record run")
	}
	observability.RecordMaintenance(run.DuplicatesRemoved, run.Expired, run.Archived)
	observability.RecordRun(string(run.Final), float64(run.FinishedAt-run.StartedAt), run.FinishedAt, true)

	log.WithFields(logrus.Fields{
		"fetched":    run.TotalFetched(),
		"duplicates": run.DuplicatesRemoved,
		"expired":    run.Expired,
		"archived":   run.Archived,
		"errors":     len(run.Errors),
	}).Info("run done")

	return run, nil
}

// fail finalizes and records a failed run, preserving partial stats.
func (o *Orchestrator) fail(ctx context.Context, run *domain.AggregationRun, err error) (*domain.AggregationRun, error) {
	run.AddError(err.Error())
	run.FinishedAt = o.now()
	run.Final = domain.RunFailed
	if aerr := o.runs.Append(context.WithoutCancel(ctx), run); aerr != nil {
		o.log.WithError(aerr).Error("record failed run")
	}
	observability.RecordRun(string(run.Final), float64(run.FinishedAt-run.StartedAt), run.FinishedAt, false)
	return run, err
}

// runIngest fetches and matches every source under a bounded worker
// pool. Source stats land on the run sorted by source name so run
// records are deterministic.
func (o *Orchestrator) runIngest(ctx context.Context, run *domain.AggregationRun, extractor *bundle.Extractor, detector *candidate.Detector, ledger *candidate.Ledger) {
	to := run.StartedAt
	from := to - o.fetchWindow

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		obs []*domain.PriceObservation
	)
	sem := make(chan struct{}, o.workers)

	for _, src := range o.sources {
		wg.Add(1)
		sem <- struct{}{}
		go func(src ingestion.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			stat, srcObs, errs := o.processSource(ctx, src, from, to, extractor, detector, ledger)

			mu.Lock()
			run.SourceStats = append(run.SourceStats, stat)
			obs = append(obs, srcObs...)
			for _, e := range errs {
				run.AddError(e)
			}
			mu.Unlock()

			observability.RecordSourceStats(stat.Source, stat.Fetched, stat.Skipped,
				stat.Matched, stat.Rejected, stat.Bundles, stat.Errors)
		}(src)
	}
	wg.Wait()

	sort.Slice(run.SourceStats, func(i, j int) bool {
		return run.SourceStats[i].Source < run.SourceStats[j].Source
	})

	if o.dryRun || len(obs) == 0 {
		return
	}
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].ComponentID != obs[j].ComponentID {
			return obs[i].ComponentID < obs[j].ComponentID
		}
		return obs[i].ListingID < obs[j].ListingID
	})
	for _, ob := range obs {
		ob.RunID = run.RunID
	}
	if err := o.archive.RecordPrices(ctx, obs); err != nil {
		run.AddError(fmt.Sprintf("record price observations: %v", err))
	}
}

// processSource ingests one source. A fetch failure marks the stat
// failed and leaves the rest of the run alone. Priced matches come
// back as observations for the analytics feed.
func (o *Orchestrator) processSource(ctx context.Context, src ingestion.Source, from, to int64, extractor *bundle.Extractor, detector *candidate.Detector, ledger *candidate.Ledger) (domain.SourceStat, []*domain.PriceObservation, []string) {
	stat := domain.SourceStat{Source: src.Name()}
	var obs []*domain.PriceObservation
	var errs []string
	log := o.log.WithField("source", src.Name())

	seen, err := o.listings.SeenIndex(ctx, src.Name())
	if err != nil {
		stat.Failed = true
		stat.Errors++
		errs = append(errs, fmt.Sprintf("source %s: seen index: %v", src.Name(), err))
		return stat, obs, errs
	}

	start := time.Now()
	raw, err := src.Fetch(ctx, from, to)
	observability.DefaultMetrics.FetchLatency.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		stat.Failed = true
		stat.Errors++
		errs = append(errs, fmt.Sprintf("source %s: fetch: %v", src.Name(), err))
		return stat, obs, errs
	}
	stat.Fetched = len(raw)

	// Deterministic processing order regardless of feed ordering.
	sort.Slice(raw, func(i, j int) bool {
		if raw[i].PostedAt != raw[j].PostedAt {
			return raw[i].PostedAt < raw[j].PostedAt
		}
		return raw[i].URL < raw[j].URL
	})

	for _, l := range raw {
		if ctx.Err() != nil {
			stat.Failed = true
			errs = append(errs, fmt.Sprintf("source %s: %v", src.Name(), ctx.Err()))
			break
		}

		if l.SoldSignal {
			n, err := o.markSold(ctx, l.URL, to)
			if err != nil {
				stat.Errors++
				errs = append(errs, fmt.Sprintf("source %s: mark sold %s: %v", src.Name(), l.URL, err))
				continue
			}
			stat.SoldUpdates += n
			continue
		}

		if lastSeen, ok := seen[l.URL]; ok && l.PostedAt <= lastSeen {
			stat.Skipped++
			if !o.dryRun {
				if err := o.touch(ctx, l.URL, to); err != nil {
					stat.Errors++
					errs = append(errs, fmt.Sprintf("source %s: touch %s: %v", src.Name(), l.URL, err))
				}
			}
			continue
		}

		x := extractor.Extract(*l)
		if len(x.Segments) == 0 {
			stat.Rejected++
			observability.RecordMatchOutcome(string(domain.MatchRejected), false)
			if c, reason := detector.Detect(*l); c != nil {
				ledger.Observe(c)
				stat.Candidates++
			} else {
				log.WithFields(logrus.Fields{"url": l.URL, "reason": reason}).Debug("listing unusable")
			}
			continue
		}

		if x.Bundle() {
			stat.Bundles++
		}
		for _, seg := range x.Segments {
			outcome := domain.MatchAccepted
			if seg.Match.Ambiguous {
				outcome = domain.MatchAmbiguous
			}
			observability.RecordMatchOutcome(string(outcome), seg.Match.Ambiguous)

			if o.dryRun {
				stat.Matched++
				continue
			}
			row := buildRow(src.Name(), l, x, seg, to)
			if _, err := o.listings.Upsert(ctx, row); err != nil {
				stat.Errors++
				errs = append(errs, fmt.Sprintf("source %s: upsert %s: %v", src.Name(), row.ListingID, err))
				continue
			}
			stat.Matched++
			if row.PriceUSD != nil {
				obs = append(obs, &domain.PriceObservation{
					ComponentID: *row.ComponentID,
					ListingID:   row.ListingID,
					Source:      row.Source,
					Condition:   row.Condition,
					PriceUSD:    *row.PriceUSD,
					ObservedAt:  to,
				})
			}
		}
	}

	return stat, obs, errs
}

// markSold flips every row of a URL to sold.
func (o *Orchestrator) markSold(ctx context.Context, url string, seenAt int64) (int, error) {
	rows, err := o.listings.GetByURL(ctx, url)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, row := range rows {
		if row.Status == domain.StatusSold {
			continue
		}
		if o.dryRun {
			updated++
			continue
		}
		if err := o.listings.UpdateStatus(ctx, row.ListingID, domain.StatusSold, seenAt); err != nil {
			return updated, err
		}
		updated++
		observability.RecordSoldUpdate()
	}
	return updated, nil
}

// touch bumps last_seen_at on every row of a still-live URL so the
// stale sweep does not expire listings the source keeps returning.
func (o *Orchestrator) touch(ctx context.Context, url string, seenAt int64) error {
	rows, err := o.listings.GetByURL(ctx, url)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := o.listings.UpdateStatus(ctx, row.ListingID, row.Status, seenAt); err != nil {
			return err
		}
	}
	return nil
}

// buildRow maps one matched segment onto its persisted row.
func buildRow(source string, l *domain.RawListing, x bundle.Extraction, seg domain.BundleSegment, now int64) *domain.PersistedListing {
	entryID := seg.Match.Entry.EntryID
	text := l.Title
	if l.Body != "" {
		text = l.Title + "\n" + l.Body
	}

	row := &domain.PersistedListing{
		ListingID:      idhash.ListingID(source, l.URL, entryID),
		Source:         source,
		URL:            l.URL,
		Title:          l.Title,
		ComponentID:    &entryID,
		PriceUSD:       seg.PriceUSD,
		Condition:      normalize.DetectCondition(text),
		Seller:         l.Seller,
		SellerRep:      l.SellerRep,
		MatchScore:     seg.Match.Score,
		MatchAmbiguous: seg.Match.Ambiguous,
		Status:         domain.StatusAvailable,
		Action:         domain.ActionAccept,
		PostedAt:       l.PostedAt,
		FirstSeenAt:    now,
		LastSeenAt:     now,
	}
	if x.Bundle() {
		gid := x.GroupID
		row.BundleGroupID = &gid
		row.BundlePosition = seg.Position
		row.BundleSize = len(x.Segments)
		row.BundleTotalUSD = x.TotalUSD
	}
	return row
}

// runValidation re-checks every listing in the recent window against
// its catalog entry and persists changed verdicts.
func (o *Orchestrator) runValidation(ctx context.Context, run *domain.AggregationRun, byEntryID map[string]*domain.CatalogEntry) error {
	recent, err := o.listings.GetRecent(ctx, o.now()-o.validationWindow)
	if err != nil {
		return fmt.Errorf("load recent listings: %w", err)
	}

	validator := validate.NewValidator(o.thresholds)
	flagged, rejected := 0, 0
	for _, l := range recent {
		var entry *domain.CatalogEntry
		if l.ComponentID != nil {
			entry = byEntryID[*l.ComponentID]
		}
		res := validator.Validate(l, entry)
		switch res.Action {
		case domain.ActionFlag:
			flagged++
		case domain.ActionReject:
			rejected++
		}
		if res.Action == l.Action && equalFlags(res.Flags, l.ValidationFlags) {
			continue
		}
		l.Action = res.Action
		l.ValidationFlags = res.Flags
		if o.dryRun {
			continue
		}
		if _, err := o.listings.Upsert(ctx, l); err != nil {
			run.AddError(fmt.Sprintf("validate %s: %v", l.ListingID, err))
		}
	}

	o.log.WithFields(logrus.Fields{
		"checked":  len(recent),
		"flagged":  flagged,
		"rejected": rejected,
	}).Info("validation sweep done")
	return nil
}

// runDedup removes cross-post duplicates: same component, seller, and
// condition, comparable price, overlapping titles, different rows. The
// keeper is the higher-reputation seller row, then the fresher post.
func (o *Orchestrator) runDedup(ctx context.Context, run *domain.AggregationRun) error {
	recent, err := o.listings.GetRecent(ctx, o.now()-o.validationWindow)
	if err != nil {
		return fmt.Errorf("load recent listings: %w", err)
	}

	groups := make(map[string][]*domain.PersistedListing)
	for _, l := range recent {
		if l.ComponentID == nil || l.Seller == "" {
			continue
		}
		key := *l.ComponentID + "|" + l.Seller + "|" + l.Condition
		groups[key] = append(groups[key], l)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			ri, rj := repOf(group[i]), repOf(group[j])
			if ri != rj {
				return ri > rj
			}
			if group[i].PostedAt != group[j].PostedAt {
				return group[i].PostedAt > group[j].PostedAt
			}
			return group[i].ListingID < group[j].ListingID
		})

		keeper := group[0]
		for _, dup := range group[1:] {
			if !priceClose(keeper.PriceUSD, dup.PriceUSD) {
				continue
			}
			if titleOverlap(keeper.Title, dup.Title) < dupTitleOverlap {
				continue
			}
			if o.dryRun {
				run.DuplicatesRemoved++
				continue
			}
			if err := o.listings.Delete(ctx, dup.ListingID); err != nil {
				run.AddError(fmt.Sprintf("dedup %s: %v", dup.ListingID, err))
				continue
			}
			run.DuplicatesRemoved++
		}
	}
	return nil
}

// runArchival moves retention-expired rows to cold storage, then
// expires stale available listings.
func (o *Orchestrator) runArchival(ctx context.Context, run *domain.AggregationRun) error {
	now := o.now()

	old, err := o.listings.GetUnarchivedOlderThan(ctx, now-o.archiveAfter)
	if err != nil {
		return fmt.Errorf("load archivable listings: %w", err)
	}
	if len(old) > 0 && !o.dryRun {
		if err := o.archive.Archive(ctx, old); err != nil {
			return fmt.Errorf("archive listings: %w", err)
		}
		for _, l := range old {
			if err := o.listings.MarkArchived(ctx, l.ListingID, now); err != nil {
				run.AddError(fmt.Sprintf("mark archived %s: %v", l.ListingID, err))
				continue
			}
			run.Archived++
		}
	} else {
		run.Archived += len(old)
	}

	stale, err := o.listings.GetActiveOlderThan(ctx, now-o.staleAfter)
	if err != nil {
		return fmt.Errorf("load stale listings: %w", err)
	}
	for _, l := range stale {
		if o.dryRun {
			run.Expired++
			continue
		}
		if err := o.listings.UpdateStatus(ctx, l.ListingID, domain.StatusExpired, l.LastSeenAt); err != nil {
			run.AddError(fmt.Sprintf("expire %s: %v", l.ListingID, err))
			continue
		}
		run.Expired++
	}
	return nil
}

func repOf(l *domain.PersistedListing) int {
	if l.SellerRep == nil {
		return -1
	}
	return *l.SellerRep
}

// priceClose reports whether two asking prices are within the duplicate
// tolerance. Missing prices never block deduplication.
func priceClose(a, b *int) bool {
	if a == nil || b == nil {
		return true
	}
	hi, lo := *a, *b
	if lo > hi {
		hi, lo = lo, hi
	}
	if hi == 0 {
		return true
	}
	return float64(hi-lo)/float64(hi) <= dupPriceTolerance
}

// titleOverlap is the fraction of the shorter title's words present in
// the longer one, case-insensitive.
func titleOverlap(a, b string) float64 {
	aw := strings.Fields(strings.ToLower(a))
	bw := strings.Fields(strings.ToLower(b))
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	if len(bw) < len(aw) {
		aw, bw = bw, aw
	}
	present := make(map[string]bool, len(bw))
	for _, w := range bw {
		present[w] = true
	}
	hits := 0
	for _, w := range aw {
		if present[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(aw))
}

func equalFlags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
