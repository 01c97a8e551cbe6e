package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/paylake/internal/event"
)

func testEvents(n int) []event.Event {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	events := make([]event.Event, n)
	for i := range events {
		events[i] = event.Event{
			TenantID: "acme",
			Plan:     "pro",
			Amount:   float64(i) + 0.5,
			PaidAtMs: base + int64(i)*1000,
		}
	}
	return events
}

func TestWriteAndReadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.parquet")

	events := []event.Event{
		{TenantID: "acme", Plan: "pro", Amount: 100.00, PaidAtMs: 1700000000000},
		{TenantID: "globex", Plan: "basic", Amount: 9.99, PaidAtMs: 1700000001000},
	}

	w, err := NewEventWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewEventWriter: %v", err)
	}
	if err := w.Write(events); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.RowCount() != 2 {
		t.Errorf("expected row count 2, got %d", w.RowCount())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewEventReader(path)
	if err != nil {
		t.Fatalf("NewEventReader: %v", err)
	}
	defer r.Close()

	if r.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", r.NumRows())
	}

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].TenantID != "acme" || got[0].Plan != "pro" || got[0].Amount != 100.00 {
		t.Errorf("unexpected first event: %+v", got[0])
	}
	if got[1].PaidAtMs != 1700000001000 {
		t.Errorf("expected paid_at round trip, got %d", got[1].PaidAtMs)
	}
}

func TestWriterCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tenant=acme", "date=2026-02-01", "events.parquet")

	w, err := NewEventWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewEventWriter: %v", err)
	}
	if err := w.Write(testEvents(1)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should exist: %v", err)
	}
}

func TestWriteAfterClose(t *testing.T) {
	dir := t.TempDir()
	w, err := NewEventWriter(filepath.Join(dir, "events.parquet"), DefaultOptions())
	if err != nil {
		t.Fatalf("NewEventWriter: %v", err)
	}
	if err := w.Write(testEvents(1)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := w.Write(testEvents(1)); err != ErrWriterClosed {
		t.Errorf("expected ErrWriterClosed, got %v", err)
	}
	// Double close is a no-op.
	if err := w.Close(); err != nil {
		t.Errorf("second Close should be nil, got %v", err)
	}
}

func TestCursorIteratesAllRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.parquet")

	// More rows than one cursor batch, to exercise refills.
	const n = cursorBatchSize*2 + 17
	w, err := NewEventWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewEventWriter: %v", err)
	}
	if err := w.Write(testEvents(n)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewEventReader(path)
	if err != nil {
		t.Fatalf("NewEventReader: %v", err)
	}
	defer r.Close()

	cur := r.Cursor()
	count := 0
	var sum float64
	for {
		e, err := cur.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		sum += e.Amount
		count++
	}

	if count != n {
		t.Fatalf("expected %d rows from cursor, got %d", n, count)
	}
	want := float64(n)*float64(n-1)/2 + float64(n)*0.5
	if sum != want {
		t.Errorf("expected amount sum %f, got %f", want, sum)
	}
}

func TestCorruptFileFailsOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.parquet")

	if err := os.WriteFile(path, []byte("this is not parquet"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewEventReader(path); err == nil {
		t.Fatal("expected error opening corrupt file")
	}
}

func TestGetFileInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.parquet")

	w, err := NewEventWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewEventWriter: %v", err)
	}
	if err := w.Write(testEvents(5)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := GetFileInfo(path)
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if info.NumRows != 5 {
		t.Errorf("expected 5 rows, got %d", info.NumRows)
	}
	if info.Size == 0 {
		t.Error("expected non-zero size")
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		in   string
		want CompressionType
	}{
		{"snappy", CompressionSnappy},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
		{"gzip", CompressionGzip},
		{"none", CompressionNone},
		{"", CompressionNone},
		{"unknown", CompressionZstd},
	}
	for _, tt := range tests {
		if got := ParseCompressionType(tt.in); got != tt.want {
			t.Errorf("ParseCompressionType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
