// Package config defines the paylake configuration, loaded from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete paylake configuration.
type Config struct {
	// DataDir is the root directory for all partition files.
	DataDir string `yaml:"data_dir"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// Generation configures the synthetic write pipeline.
	Generation GenerationConfig `yaml:"generation"`

	// Query configures the read path.
	Query QueryConfig `yaml:"query"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON selects JSON output instead of text.
	JSON bool `yaml:"json"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GenerationConfig configures the synthetic write pipeline.
type GenerationConfig struct {
	// TotalRecords is the number of events to generate per run.
	TotalRecords int `yaml:"total_records"`

	// Workers is the number of parallel writers. 0 means runtime.NumCPU().
	Workers int `yaml:"workers"`

	// Tenants and Plans are the value sets drawn from uniformly.
	Tenants []string `yaml:"tenants"`
	Plans   []string `yaml:"plans"`

	// StartDate and EndDate bound paid_at, format YYYY-MM-DD (UTC).
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`

	// AmountMin and AmountMax bound the uniform amount draw.
	AmountMin float64 `yaml:"amount_min"`
	AmountMax float64 `yaml:"amount_max"`

	// Compression configures Parquet compression for written files.
	Compression CompressionConfig `yaml:"compression"`
}

// CompressionConfig configures Parquet compression.
type CompressionConfig struct {
	// Algorithm is the compression algorithm: snappy, zstd, lz4, gzip, none.
	Algorithm string `yaml:"algorithm"`

	// Level is the compression level (for zstd: 1-22).
	Level int `yaml:"level"`
}

// QueryConfig configures the read path.
type QueryConfig struct {
	// Engine selects the aggregation engine: "streaming" or "duckdb".
	Engine string `yaml:"engine"`

	// Window is the recency window applied to paid_at.
	Window time.Duration `yaml:"window"`

	// Limit is the maximum number of result rows.
	Limit int `yaml:"limit"`

	// CacheTTL enables the per-tenant discovery cache when > 0.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// MemoryLimit is passed to DuckDB when the duckdb engine is selected.
	// Format: "4GB", "512MB". Empty means DuckDB's default.
	MemoryLimit string `yaml:"memory_limit"`
}

// Query engine names.
const (
	EngineStreaming = "streaming"
	EngineDuckDB    = "duckdb"
)

// DefaultConfig returns the default configuration.
// Generation defaults mirror the canonical demo dataset.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Listen:          "0.0.0.0:3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Generation: GenerationConfig{
			TotalRecords: 1000000,
			Workers:      0,
			Tenants:      []string{"acme", "globex", "initech", "umbrella", "hooli"},
			Plans:        []string{"basic", "premium", "enterprise", "starter", "pro"},
			StartDate:    "2024-01-01",
			EndDate:      "2026-02-10",
			AmountMin:    100,
			AmountMax:    10100,
			Compression: CompressionConfig{
				Algorithm: "zstd",
				Level:     3,
			},
		},
		Query: QueryConfig{
			Engine: EngineStreaming,
			Window: 30 * 24 * time.Hour,
			Limit:  50,
		},
	}
}

// Load reads configuration from a YAML file, applying defaults for
// unspecified fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Generation.TotalRecords < 0 {
		return fmt.Errorf("generation.total_records must be >= 0")
	}
	if c.Generation.Workers < 0 {
		return fmt.Errorf("generation.workers must be >= 0")
	}
	if len(c.Generation.Tenants) == 0 {
		return fmt.Errorf("generation.tenants must not be empty")
	}
	if len(c.Generation.Plans) == 0 {
		return fmt.Errorf("generation.plans must not be empty")
	}
	if c.Generation.AmountMin < 0 {
		return fmt.Errorf("generation.amount_min must be >= 0")
	}
	if c.Generation.AmountMax < c.Generation.AmountMin {
		return fmt.Errorf("generation.amount_max must be >= amount_min")
	}
	if _, _, err := c.Generation.DateRange(); err != nil {
		return err
	}
	switch c.Query.Engine {
	case EngineStreaming, EngineDuckDB:
	default:
		return fmt.Errorf("query.engine must be %q or %q, got %q",
			EngineStreaming, EngineDuckDB, c.Query.Engine)
	}
	if c.Query.Window <= 0 {
		return fmt.Errorf("query.window must be > 0")
	}
	if c.Query.Limit <= 0 {
		return fmt.Errorf("query.limit must be > 0")
	}
	return nil
}

// DateRange parses the generation date bounds. The end date is inclusive
// of the whole day: records may fall anywhere within it.
func (g *GenerationConfig) DateRange() (start, end time.Time, err error) {
	start, err = time.ParseInLocation("2006-01-02", g.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("generation.start_date: %w", err)
	}
	end, err = time.ParseInLocation("2006-01-02", g.EndDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("generation.end_date: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("generation.end_date %s before start_date %s", g.EndDate, g.StartDate)
	}
	return start, end, nil
}

// EventsDir returns the root of the partitioned event store.
func (c *Config) EventsDir() string {
	return filepath.Join(c.DataDir, "events")
}
