package generate

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/paylake/internal/metrics"
	"github.com/xtxerr/paylake/internal/parquet"
)

// Job describes one generation run.
type Job struct {
	// Root is the events root directory files are written under.
	Root string

	// TotalRecords is the number of events to generate.
	TotalRecords int

	// Workers is the number of parallel workers. 0 means runtime.NumCPU().
	Workers int

	// Generator defines the value ranges records are drawn from.
	Generator Config

	// Seed seeds the per-worker random sources (worker i uses Seed+i).
	// 0 means a time-based seed.
	Seed int64

	// Parquet configures compression for written files.
	Parquet parquet.Options
}

// Result holds the merged completion statistics of a generation run.
type Result struct {
	RecordsProcessed int64
	FilesWritten     int64
	Duration         time.Duration
	Workers          int

	// WriteLatency summarizes per-file write latency across all workers.
	WriteLatency LatencySummary
}

// LatencySummary holds write latency percentiles in milliseconds.
type LatencySummary struct {
	P50 float64
	P95 float64
	P99 float64
}

// Run splits a job into contiguous, near-equal index ranges and runs one
// worker per range: each worker generates its slice and writes it through
// its own PartitionWriter, sharing nothing with its siblings but the
// filesystem. Run waits for all workers; the first failure fails the whole
// job. There is no rollback: files written by workers that completed, or
// were in flight, remain on disk. Callers needing atomicity must layer a
// staging-then-publish scheme on top.
func Run(ctx context.Context, job Job) (*Result, error) {
	workers := job.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	seed := job.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Ceiling split; the final range absorbs the remainder, and workers
	// whose range starts past the total receive zero work.
	perWorker := 0
	if job.TotalRecords > 0 {
		perWorker = (job.TotalRecords + workers - 1) / workers
	}

	merged, sketchErr := ddsketch.NewDefaultDDSketch(0.01)
	var mu sync.Mutex

	var records, files atomic.Int64

	log.Info("generation started",
		"total_records", job.TotalRecords, "workers", workers, "root", job.Root)

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < workers; i++ {
		startIdx := i * perWorker
		if startIdx >= job.TotalRecords {
			// Zero work; trivially complete.
			continue
		}
		count := min(perWorker, job.TotalRecords-startIdx)
		workerID := i

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(seed + int64(workerID)))
			gen := NewGenerator(job.Generator, rng)
			w := NewPartitionWriter(job.Root, workerID, job.Parquet)

			local, err := ddsketch.NewDefaultDDSketch(0.01)
			if err == nil {
				w.onWrite = func(d time.Duration) {
					_ = local.Add(float64(d) / float64(time.Millisecond))
				}
			}

			n, err := w.WriteAll(gen.Records(count))
			files.Add(int64(n))
			metrics.FilesWritten.Add(float64(n))
			if err != nil {
				return fmt.Errorf("worker %d (records %d..%d): %w",
					workerID, startIdx, startIdx+count-1, err)
			}

			records.Add(int64(count))
			metrics.RecordsWritten.Add(float64(count))

			if sketchErr == nil && local != nil {
				mu.Lock()
				_ = merged.MergeWith(local)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		RecordsProcessed: records.Load(),
		FilesWritten:     files.Load(),
		Duration:         time.Since(started),
		Workers:          workers,
	}

	if sketchErr == nil && merged.GetCount() > 0 {
		p50, _ := merged.GetValueAtQuantile(0.50)
		p95, _ := merged.GetValueAtQuantile(0.95)
		p99, _ := merged.GetValueAtQuantile(0.99)
		res.WriteLatency = LatencySummary{P50: p50, P95: p95, P99: p99}
	}

	log.Info("generation complete",
		"records", res.RecordsProcessed,
		"files", res.FilesWritten,
		"duration", res.Duration,
		"write_p50_ms", res.WriteLatency.P50,
		"write_p99_ms", res.WriteLatency.P99)

	return res, nil
}
