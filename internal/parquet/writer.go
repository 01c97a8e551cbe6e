package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/xtxerr/paylake/internal/event"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// CompressionLevel for algorithms that support it (zstd: 1-22)
	CompressionLevel int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:      CompressionZstd,
		CompressionLevel: 3,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// EventRow represents a payment event in Parquet format. The schema is
// embedded in every file, so a reader needs no external catalog.
type EventRow struct {
	TenantID string  `parquet:"tenant_id,zstd"`
	Plan     string  `parquet:"plan,zstd"`
	Amount   float64 `parquet:"amount"`
	PaidAt   int64   `parquet:"paid_at,timestamp"`
}

// EventToRow converts an Event to an EventRow.
func EventToRow(e *event.Event) EventRow {
	return EventRow{
		TenantID: e.TenantID,
		Plan:     e.Plan,
		Amount:   e.Amount,
		PaidAt:   e.PaidAtMs,
	}
}

// RowToEvent converts an EventRow to an Event.
func RowToEvent(r *EventRow) event.Event {
	return event.Event{
		TenantID: r.TenantID,
		Plan:     r.Plan,
		Amount:   r.Amount,
		PaidAtMs: r.PaidAt,
	}
}

// EventWriter writes events to a Parquet file. The file is not visible
// to discovery as complete until Close returns; callers must write the
// whole group and close before treating the file as published.
type EventWriter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[EventRow]
	rowCount int64
	closed   bool
}

// NewEventWriter creates a new event Parquet writer.
func NewEventWriter(path string, opts Options) (*EventWriter, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}

	writer := parquet.NewGenericWriter[EventRow](f, writerOpts...)

	return &EventWriter{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write writes events to the Parquet file.
func (w *EventWriter) Write(events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	rows := make([]EventRow, len(events))
	for i := range events {
		rows[i] = EventToRow(&events[i])
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Close flushes the footer and closes the file.
func (w *EventWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *EventWriter) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *EventWriter) Path() string {
	return w.path
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")
