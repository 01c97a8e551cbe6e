// Package query implements the revenue-by-plan query façade: it resolves
// a tenant's partition files through discovery and aggregates them with
// the streaming engine, or optionally with DuckDB SQL over the same files.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/xtxerr/paylake/internal/aggregate"
	"github.com/xtxerr/paylake/internal/config"
	"github.com/xtxerr/paylake/internal/discovery"
	"github.com/xtxerr/paylake/internal/logging"
	"github.com/xtxerr/paylake/internal/metrics"
)

var log = logging.Component("query")

// ErrMissingTenant is the client error for a query without a tenant.
var ErrMissingTenant = errors.New("tenant is required")

// Service answers revenue-by-plan queries over the partitioned store.
type Service struct {
	cfg   *config.Config
	cache *discovery.Cache
	now   func() time.Time
	db    *duckDB // non-nil when the duckdb engine is selected

	stats struct {
		queriesExecuted atomic.Int64
		rowsReturned    atomic.Int64
		errors          atomic.Int64
	}
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects the clock the recency threshold is computed against.
// The default is time.Now; tests pin it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a query service for the configured store.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:   cfg,
		cache: discovery.NewCache(cfg.EventsDir(), cfg.Query.CacheTTL),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Query.Engine == config.EngineDuckDB {
		db, err := openDuckDB(cfg.Query.MemoryLimit)
		if err != nil {
			return nil, err
		}
		s.db = db
	}

	return s, nil
}

// Close releases the service's resources.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Result is the query response: the tenant plus its ranked rows.
type Result struct {
	TenantID string          `json:"tenant_id"`
	Rows     []aggregate.Row `json:"rows"`
}

// RevenueByPlan returns the tenant's revenue and payment counts per plan
// over the recency window, ranked by revenue descending. A missing tenant
// is a client error (ErrMissingTenant). A tenant with no qualifying data
// returns an empty row list and no error.
func (s *Service) RevenueByPlan(ctx context.Context, tenant string) (*Result, error) {
	if tenant == "" {
		return nil, ErrMissingTenant
	}

	started := time.Now()
	threshold := s.now().Add(-s.cfg.Query.Window)

	files, err := s.cache.Files(ctx, tenant)
	if err != nil {
		s.stats.errors.Add(1)
		metrics.QueryErrors.Inc()
		return nil, fmt.Errorf("discover partitions: %w", err)
	}

	var rows []aggregate.Row
	if len(files) > 0 {
		if s.db != nil {
			rows, err = s.db.RevenueByPlan(ctx, s.cfg.EventsDir(), tenant, threshold)
		} else {
			rows, err = aggregate.RevenueByPlan(ctx, files, aggregate.Filter{
				TenantID:  tenant,
				Threshold: threshold,
			})
		}
		if err != nil {
			s.stats.errors.Add(1)
			metrics.QueryErrors.Inc()
			return nil, fmt.Errorf("aggregate: %w", err)
		}
	}

	if limit := s.cfg.Query.Limit; limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []aggregate.Row{}
	}

	s.stats.queriesExecuted.Add(1)
	s.stats.rowsReturned.Add(int64(len(rows)))
	metrics.QueriesExecuted.Inc()
	metrics.QueryDuration.Observe(float64(time.Since(started)) / float64(time.Millisecond))

	log.Debug("query complete",
		"tenant", tenant, "files", len(files), "rows", len(rows),
		"threshold", threshold.Format(time.RFC3339))

	return &Result{TenantID: tenant, Rows: rows}, nil
}

// InvalidateCache drops cached discovery results so files written after
// the last walk become visible immediately.
func (s *Service) InvalidateCache() {
	s.cache.InvalidateAll()
}

// Stats is a snapshot of service counters.
type Stats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// Stats returns a snapshot of service counters.
func (s *Service) Stats() Stats {
	return Stats{
		QueriesExecuted: s.stats.queriesExecuted.Load(),
		RowsReturned:    s.stats.rowsReturned.Load(),
		Errors:          s.stats.errors.Load(),
	}
}
