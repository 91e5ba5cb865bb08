// Package main applies the embedded schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"hifi-market-lab/internal/config"
	"hifi-market-lab/internal/storage/clickhouse"
	"hifi-market-lab/internal/storage/migrations"
	"hifi-market-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Backend != "postgres" {
		fmt.Fprintln(os.Stderr, "Migrations require the postgres backend")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connect postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Postgres migrations: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Postgres migrations applied")

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Connect clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			fmt.Fprintf(os.Stderr, "Clickhouse migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Clickhouse migrations applied")
	}
}
