// Package main renders the latest reconciliation run to markdown and
// CSV files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"hifi-market-lab/internal/config"
	"hifi-market-lab/internal/reporting"
	"hifi-market-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search ./config.yaml)")
	outputDir := flag.String("output-dir", "", "Output directory (default: config report.output_dir)")
	windowSec := flag.Int64("window-sec", 0, "Market lookback in seconds (default: config report.window_sec)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Backend != "postgres" {
		fmt.Fprintln(os.Stderr, "Reporting requires the postgres backend; memory stores do not outlive a run")
		os.Exit(1)
	}

	dir := cfg.Report.OutputDir
	if *outputDir != "" {
		dir = *outputDir
	}
	window := cfg.Report.WindowSec
	if *windowSec > 0 {
		window = *windowSec
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Storage error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	gen := reporting.NewGenerator(
		postgres.NewListingStore(pool),
		postgres.NewCandidateStore(pool),
		postgres.NewRunStore(pool),
		postgres.NewCatalogStore(pool),
	).WithWindow(window)

	report, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Report error: %v\n", err)
		os.Exit(1)
	}

	if err := writeReports(dir, report); err != nil {
		fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Report written:")
	fmt.Printf("  - %s/REPORT.md\n", dir)
	fmt.Printf("  - %s/market_overview.csv\n", dir)
	fmt.Printf("  - %s/catalog_candidates.csv\n", dir)
}

func writeReports(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := map[string]string{
		"REPORT.md":              reporting.RenderMarkdown(report),
		"market_overview.csv":    reporting.RenderMarketCSV(report.Market),
		"catalog_candidates.csv": reporting.RenderCandidateCSV(report.PendingCandidates),
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
