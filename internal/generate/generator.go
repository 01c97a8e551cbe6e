// Package generate implements the parallel synthetic write pipeline:
// record generation, partition-grouped Parquet writing, and the
// coordinator that fans a job out across workers.
package generate

import (
	"math"
	"math/rand"
	"time"

	"github.com/xtxerr/paylake/internal/config"
	"github.com/xtxerr/paylake/internal/event"
)

// Config defines the value ranges records are drawn from.
type Config struct {
	// Tenants and Plans are drawn from uniformly at random.
	Tenants []string
	Plans   []string

	// AmountMin and AmountMax bound the uniform amount draw.
	AmountMin float64
	AmountMax float64

	// Start (inclusive) and End (exclusive) bound paid_at.
	Start time.Time
	End   time.Time
}

// ConfigFrom builds a generator Config from the YAML generation section.
// The configured end date is treated as inclusive of the whole day.
func ConfigFrom(g config.GenerationConfig) (Config, error) {
	start, end, err := g.DateRange()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Tenants:   g.Tenants,
		Plans:     g.Plans,
		AmountMin: g.AmountMin,
		AmountMax: g.AmountMax,
		Start:     start,
		End:       end.AddDate(0, 0, 1),
	}, nil
}

// Generator produces synthetic payment events. It is a pure function of
// its configuration and random source: no ordering guarantee, no
// deduplication, no side effects.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng gets a time-seeded source.
func NewGenerator(cfg Config, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{cfg: cfg, rng: rng}
}

// Record produces one random event.
func (g *Generator) Record() event.Event {
	return event.Event{
		TenantID: g.cfg.Tenants[g.rng.Intn(len(g.cfg.Tenants))],
		Plan:     g.cfg.Plans[g.rng.Intn(len(g.cfg.Plans))],
		Amount:   g.randomAmount(),
		PaidAtMs: g.randomPaidAt(),
	}
}

// Records produces n random events.
func (g *Generator) Records(n int) []event.Event {
	batch := event.NewBatch(n)
	for i := 0; i < n; i++ {
		batch.Add(g.Record())
	}
	return batch.Events
}

// randomAmount draws uniformly from [AmountMin, AmountMax) and rounds
// to 2 decimal places.
func (g *Generator) randomAmount() float64 {
	v := g.cfg.AmountMin + g.rng.Float64()*(g.cfg.AmountMax-g.cfg.AmountMin)
	return math.Round(v*100) / 100
}

// randomPaidAt draws uniformly from [Start, End) in millisecond resolution.
func (g *Generator) randomPaidAt() int64 {
	startMs := g.cfg.Start.UnixMilli()
	endMs := g.cfg.End.UnixMilli()
	if endMs <= startMs {
		return startMs
	}
	return startMs + g.rng.Int63n(endMs-startMs)
}
