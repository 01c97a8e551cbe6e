// Package aggregate implements the streaming revenue-by-plan aggregation
// over partition files. Files are read one cursor step at a time, so
// memory is bounded by the number of distinct plans plus one read batch,
// never by total record or file count.
package aggregate

import (
	"context"
	"io"
	"math"
	"sort"
	"time"

	"github.com/xtxerr/paylake/internal/logging"
	"github.com/xtxerr/paylake/internal/metrics"
	"github.com/xtxerr/paylake/internal/parquet"
)

var log = logging.Component("aggregate")

// MaxRows is the ranked result truncation limit.
const MaxRows = 50

// Filter is the row predicate pushed down into the per-file scan:
// a record passes when its tenant matches and paid_at is at or after
// the threshold.
type Filter struct {
	TenantID  string
	Threshold time.Time
}

// Row is one ranked aggregate result.
type Row struct {
	Plan     string  `json:"plan"`
	Revenue  float64 `json:"revenue"`
	Payments int64   `json:"payments"`
}

// accumulator folds matching records for one plan.
type accumulator struct {
	revenue  float64
	payments int64
}

// RevenueByPlan streams every file in the list, folds matching records
// into per-plan revenue and payment counts, and returns rows rounded to
// cents, sorted by revenue descending (stable: ties keep first-seen plan
// order), truncated to MaxRows.
//
// A file that cannot be opened or read is logged and skipped; a single
// corrupt file never fails the whole query. Cancellation of ctx stops
// the scan between files.
func RevenueByPlan(ctx context.Context, files []string, f Filter) ([]Row, error) {
	acc := make(map[string]*accumulator)
	var order []string // plans in first-seen order, for deterministic ties

	thresholdMs := f.Threshold.UnixMilli()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := scanFile(path, f.TenantID, thresholdMs, acc, &order); err != nil {
			log.Warn("skipping unreadable partition file", "path", path, "error", err)
			metrics.FilesSkipped.Inc()
		}
	}

	rows := make([]Row, 0, len(order))
	for _, plan := range order {
		a := acc[plan]
		rows = append(rows, Row{
			Plan:     plan,
			Revenue:  roundToCents(a.revenue),
			Payments: a.payments,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue > rows[j].Revenue
	})

	if len(rows) > MaxRows {
		rows = rows[:MaxRows]
	}

	return rows, nil
}

// scanFile folds one file's matching records into acc via a forward
// cursor. It never materializes the file's full contents.
func scanFile(path, tenant string, thresholdMs int64, acc map[string]*accumulator, order *[]string) error {
	r, err := parquet.NewEventReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	cur := r.Cursor()
	for {
		e, err := cur.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if e.TenantID != tenant || e.PaidAtMs < thresholdMs {
			continue
		}

		a, ok := acc[e.Plan]
		if !ok {
			a = &accumulator{}
			acc[e.Plan] = a
			*order = append(*order, e.Plan)
		}
		a.revenue += e.Amount
		a.payments++
	}
}

// roundToCents rounds half away from zero to 2 decimal places. The nudge
// compensates for decimal halves that sit just below .5 in binary
// (10.005*100 == 1000.4999…), which must still round up.
func roundToCents(v float64) float64 {
	cents := v * 100
	return math.Round(cents+math.Copysign(1e-6, cents)) / 100
}
