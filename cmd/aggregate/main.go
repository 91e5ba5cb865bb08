// Package main runs one reconciliation pass: ingest → match → validate
// → dedup → archive, then records the run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"hifi-market-lab/internal/config"
	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/ingestion"
	"hifi-market-lab/internal/match"
	"hifi-market-lab/internal/observability"
	"hifi-market-lab/internal/orchestrator"
	"hifi-market-lab/internal/storage"
	"hifi-market-lab/internal/storage/clickhouse"
	"hifi-market-lab/internal/storage/memory"
	"hifi-market-lab/internal/storage/postgres"
	"hifi-market-lab/internal/validate"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search ./config.yaml)")
	catalogPath := flag.String("catalog", "", "Path to catalog JSON file to load before the run")
	sourceFilter := flag.String("sources", "", "Comma-separated source names to run (default: all configured)")
	dryRun := flag.Bool("dry-run", false, "Compute everything but write only the run record")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling run...\n", sig)
		cancel()
	}()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	stores, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Storage error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if *catalogPath != "" {
		n, err := loadCatalog(ctx, *catalogPath, stores.catalog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Catalog error: %v\n", err)
			os.Exit(1)
		}
		logger.WithField("entries", n).Info("catalog loaded")
	}

	sources, err := buildSources(cfg, *sourceFilter, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Source error: %v\n", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "No sources configured; nothing to do")
		os.Exit(1)
	}

	orch := orchestrator.New(orchestrator.Options{
		ListingStore:     stores.listings,
		CandidateStore:   stores.candidates,
		RunStore:         stores.runs,
		RunLockStore:     stores.lock,
		ArchiveStore:     stores.archive,
		CatalogStore:     stores.catalog,
		Sources:          sources,
		Tunables:         tunables(cfg),
		Thresholds:       thresholds(cfg),
		FetchWindow:      cfg.Pipeline.FetchWindowSec,
		ValidationWindow: cfg.Pipeline.ValidationSec,
		StaleAfter:       cfg.Pipeline.StaleAfterSec,
		ArchiveAfter:     cfg.Pipeline.ArchiveAfterSec,
		Workers:          cfg.Pipeline.Workers,
		DryRun:           cfg.Pipeline.DryRun || *dryRun,
		Logger:           logger,
	})

	run, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run error: %v\n", err)
		os.Exit(1)
	}

	printSummary(run)
	if run.Final == domain.RunFailed {
		os.Exit(1)
	}
}

// allStores holds one store per concern, regardless of backend.
type allStores struct {
	listings   storage.ListingStore
	candidates storage.CandidateStore
	runs       storage.RunStore
	lock       storage.RunLockStore
	archive    storage.ArchiveStore
	catalog    storage.CatalogStore
}

// buildStores wires the configured backend. The memory backend is for
// dry runs and local experiments; nothing survives the process.
func buildStores(ctx context.Context, cfg *config.Config) (*allStores, func(), error) {
	if cfg.Storage.Backend == "memory" {
		return &allStores{
			listings:   memory.NewListingStore(),
			candidates: memory.NewCandidateStore(),
			runs:       memory.NewRunStore(),
			lock:       memory.NewRunLockStore().WithStaleAfter(cfg.Pipeline.LockStaleSec),
			archive:    memory.NewArchiveStore(),
			catalog:    memory.NewCatalogStore(),
		}, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	cleanup := func() { pool.Close() }

	stores := &allStores{
		listings:   postgres.NewListingStore(pool),
		candidates: postgres.NewCandidateStore(pool),
		runs:       postgres.NewRunStore(pool),
		lock:       postgres.NewRunLockStore(pool).WithStaleAfter(cfg.Pipeline.LockStaleSec),
		catalog:    postgres.NewCatalogStore(pool),
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		stores.archive = clickhouse.NewArchiveStore(conn)
		cleanup = func() {
			_ = conn.Close()
			pool.Close()
		}
	} else {
		stores.archive = memory.NewArchiveStore()
	}

	return stores, cleanup, nil
}

// buildSources instantiates configured sources, restricted to the
// -sources filter when given.
func buildSources(cfg *config.Config, filter string, logger *logrus.Logger) ([]ingestion.Source, error) {
	wanted := make(map[string]bool)
	if filter != "" {
		for _, name := range strings.Split(filter, ",") {
			wanted[strings.TrimSpace(name)] = true
		}
	}

	var sources []ingestion.Source
	for _, sc := range cfg.Sources {
		if len(wanted) > 0 && !wanted[sc.Name] {
			continue
		}
		switch sc.Type {
		case "http":
			sources = append(sources, ingestion.NewHTTPSource(ingestion.HTTPSourceOptions{
				Name:           sc.Name,
				Endpoint:       sc.URL,
				RequestsPerSec: sc.RequestsPerSec,
				Logger:         logger,
			}))
		case "ws":
			sources = append(sources, ingestion.NewWSFeedSource(sc.Name, sc.URL, logger))
		default:
			return nil, fmt.Errorf("source %s: unknown type %q", sc.Name, sc.Type)
		}
	}
	return sources, nil
}

func tunables(cfg *config.Config) match.Tunables {
	t := match.DefaultTunables()
	if cfg.Matcher.Threshold > 0 {
		t.Threshold = cfg.Matcher.Threshold
	}
	if cfg.Matcher.AmbiguityBand > 0 {
		t.AmbiguityBand = cfg.Matcher.AmbiguityBand
	}
	return t
}

func thresholds(cfg *config.Config) validate.Thresholds {
	t := validate.DefaultThresholds()
	if cfg.Validation.RejectRatio > 0 {
		t.RejectRatio = cfg.Validation.RejectRatio
	}
	if cfg.Validation.HighRatio > 0 {
		t.HighRatio = cfg.Validation.HighRatio
	}
	if cfg.Validation.LowRatio > 0 {
		t.LowRatio = cfg.Validation.LowRatio
	}
	return t
}

// wireCatalogEntry is the catalog file schema.
type wireCatalogEntry struct {
	EntryID      string            `json:"entry_id"`
	Brand        string            `json:"brand"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	BrandAliases []string          `json:"brand_aliases"`
	NameAliases  []string          `json:"name_aliases"`
	PriceNewUSD  *int              `json:"price_new_usd"`
	PriceUsedUSD *int              `json:"price_used_usd"`
	Specs        map[string]string `json:"specs"`
}

// loadCatalog upserts entries from a JSON catalog file into the store.
func loadCatalog(ctx context.Context, path string, store storage.CatalogStore) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog file: %w", err)
	}

	var rows []wireCatalogEntry
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("parse catalog file: %w", err)
	}

	for i, row := range rows {
		entry := &domain.CatalogEntry{
			EntryID:      row.EntryID,
			Brand:        row.Brand,
			Name:         row.Name,
			Category:     domain.Category(row.Category),
			BrandAliases: row.BrandAliases,
			NameAliases:  row.NameAliases,
			PriceNewUSD:  row.PriceNewUSD,
			PriceUsedUSD: row.PriceUsedUSD,
			Specs:        row.Specs,
		}
		if err := store.Upsert(ctx, entry); err != nil {
			return i, fmt.Errorf("upsert catalog entry %s: %w", row.EntryID, err)
		}
	}
	return len(rows), nil
}

func serveMetrics(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	logger.WithField("addr", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Warn("metrics server stopped")
	}
}

func printSummary(run *domain.AggregationRun) {
	fmt.Printf("Run %s finished: %s\n", run.RunID, run.Final)
	fmt.Printf("  Duration: %ds\n", run.FinishedAt-run.StartedAt)
	if run.DryRun {
		fmt.Println("  Mode: dry run (no writes)")
	}
	for _, s := range run.SourceStats {
		status := ""
		if s.Failed {
			status = " [FAILED]"
		}
		fmt.Printf("  %s%s: fetched=%d skipped=%d matched=%d bundles=%d candidates=%d rejected=%d sold=%d\n",
			s.Source, status, s.Fetched, s.Skipped, s.Matched, s.Bundles,
			s.Candidates, s.Rejected, s.SoldUpdates)
	}
	fmt.Printf("  Duplicates removed: %d\n", run.DuplicatesRemoved)
	fmt.Printf("  Expired: %d, archived: %d\n", run.Expired, run.Archived)
	if len(run.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(run.Errors))
		for _, e := range run.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}
