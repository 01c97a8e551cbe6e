package query

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/paylake/internal/aggregate"
	"github.com/xtxerr/paylake/internal/discovery"
)

// duckDB runs the revenue-by-plan query as SQL over read_parquet instead
// of the streaming engine. Rounding and ranking match the streaming
// engine's contract; result limits are applied by the caller.
type duckDB struct {
	db *sql.DB
}

// openDuckDB opens an in-memory DuckDB database.
func openDuckDB(memoryLimit string) (*duckDB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if memoryLimit != "" {
		if _, err := db.Exec(fmt.Sprintf("SET memory_limit='%s'", memoryLimit)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	return &duckDB{db: db}, nil
}

// Close closes the database.
func (d *duckDB) Close() error {
	return d.db.Close()
}

// RevenueByPlan aggregates the tenant's partition files via a glob scan.
func (d *duckDB) RevenueByPlan(ctx context.Context, root, tenant string, threshold time.Time) ([]aggregate.Row, error) {
	pattern := filepath.Join(discovery.TenantDir(root, tenant), "**", "*"+discovery.FileExt)

	query := `
		SELECT
			plan,
			ROUND(SUM(amount), 2) AS revenue,
			COUNT(*) AS payments
		FROM read_parquet($1)
		WHERE tenant_id = $2
		  AND paid_at >= epoch_ms($3)
		GROUP BY plan
		ORDER BY revenue DESC
		LIMIT $4
	`

	rows, err := d.db.QueryContext(ctx, query,
		pattern, tenant, threshold.UnixMilli(), aggregate.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("query parquet: %w", err)
	}
	defer rows.Close()

	var results []aggregate.Row
	for rows.Next() {
		var r aggregate.Row
		if err := rows.Scan(&r.Plan, &r.Revenue, &r.Payments); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// ExecuteSQL executes a raw SQL query. Useful for ad-hoc inspection of
// the store (e.g. SELECT count(*) FROM read_parquet('data/events/**')).
func (d *duckDB) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// ExecuteSQL runs an ad-hoc SQL query when the duckdb engine is selected.
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	if s.db == nil {
		return nil, fmt.Errorf("sql queries require query.engine=%q", "duckdb")
	}
	return s.db.ExecuteSQL(ctx, query)
}
