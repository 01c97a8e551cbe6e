// paylake-gen generates a synthetic partitioned event dataset using the
// parallel write pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/xtxerr/paylake/internal/config"
	"github.com/xtxerr/paylake/internal/generate"
	"github.com/xtxerr/paylake/internal/logging"
	"github.com/xtxerr/paylake/internal/parquet"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	dataDir := flag.String("data", "", "data directory (overrides config)")
	records := flag.Int("records", 0, "total records to generate (overrides config)")
	workers := flag.Int("workers", 0, "worker count, 0 = all CPU cores (overrides config)")
	seed := flag.Int64("seed", 0, "random seed, 0 = time-based")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg = config.DefaultConfig()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *records > 0 {
		cfg.Generation.TotalRecords = *records
	}
	if *workers > 0 {
		cfg.Generation.Workers = *workers
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, false)

	gen, err := generate.ConfigFrom(cfg.Generation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid generation config: %v\n", err)
		os.Exit(1)
	}

	res, err := generate.Run(context.Background(), generate.Job{
		Root:         cfg.EventsDir(),
		TotalRecords: cfg.Generation.TotalRecords,
		Workers:      cfg.Generation.Workers,
		Generator:    gen,
		Seed:         *seed,
		Parquet: parquet.Options{
			Compression:      parquet.ParseCompressionType(cfg.Generation.Compression.Algorithm),
			CompressionLevel: cfg.Generation.Compression.Level,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	secs := res.Duration.Seconds()
	rate := 0.0
	if secs > 0 {
		rate = float64(res.RecordsProcessed) / secs
	}

	fmt.Printf("Generated %d records in %d parquet files\n", res.RecordsProcessed, res.FilesWritten)
	fmt.Printf("  Time taken:   %.2f seconds\n", secs)
	fmt.Printf("  Speed:        %.0f records/second\n", rate)
	fmt.Printf("  Workers:      %d\n", res.Workers)
	fmt.Printf("  Write p50/p95/p99: %.1f/%.1f/%.1f ms\n",
		res.WriteLatency.P50, res.WriteLatency.P95, res.WriteLatency.P99)
	fmt.Printf("  Date range:   %s to %s\n", cfg.Generation.StartDate, cfg.Generation.EndDate)
	fmt.Printf("  Data dir:     %s\n", cfg.EventsDir())
}
