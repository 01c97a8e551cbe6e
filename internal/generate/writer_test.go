package generate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/paylake/internal/event"
	"github.com/xtxerr/paylake/internal/parquet"
)

func msOf(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC).UnixMilli()
}

func TestWriteAllGroupsByPartition(t *testing.T) {
	root := t.TempDir()
	w := NewPartitionWriter(root, 0, parquet.DefaultOptions())

	events := []event.Event{
		{TenantID: "acme", Plan: "pro", Amount: 10, PaidAtMs: msOf(2026, 2, 1)},
		{TenantID: "acme", Plan: "basic", Amount: 20, PaidAtMs: msOf(2026, 2, 1)},
		{TenantID: "acme", Plan: "pro", Amount: 30, PaidAtMs: msOf(2026, 2, 2)},
		{TenantID: "globex", Plan: "pro", Amount: 40, PaidAtMs: msOf(2026, 2, 1)},
	}

	files, err := w.WriteAll(events)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	// Three distinct (tenant, date) groups.
	if files != 3 {
		t.Fatalf("expected 3 files, got %d", files)
	}

	// Every record must live under tenant=<tenant>/date=<date(paid_at)>.
	checks := []struct {
		dir  string
		rows int64
	}{
		{filepath.Join(root, "tenant=acme", "date=2026-02-01"), 2},
		{filepath.Join(root, "tenant=acme", "date=2026-02-02"), 1},
		{filepath.Join(root, "tenant=globex", "date=2026-02-01"), 1},
	}
	for _, c := range checks {
		entries, err := os.ReadDir(c.dir)
		if err != nil {
			t.Fatalf("partition dir missing: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 file in %s, got %d", c.dir, len(entries))
		}
		info, err := parquet.GetFileInfo(filepath.Join(c.dir, entries[0].Name()))
		if err != nil {
			t.Fatalf("GetFileInfo: %v", err)
		}
		if info.NumRows != c.rows {
			t.Errorf("expected %d rows in %s, got %d", c.rows, c.dir, info.NumRows)
		}
	}
}

func TestWriteAllEmptyInput(t *testing.T) {
	w := NewPartitionWriter(t.TempDir(), 0, parquet.DefaultOptions())
	files, err := w.WriteAll(nil)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if files != 0 {
		t.Errorf("expected 0 files, got %d", files)
	}
}

func TestFileNamesCarryWorkerIDAndSequence(t *testing.T) {
	root := t.TempDir()
	w := NewPartitionWriter(root, 7, parquet.DefaultOptions())

	events := []event.Event{
		{TenantID: "acme", Plan: "pro", Amount: 1, PaidAtMs: msOf(2026, 2, 1)},
		{TenantID: "acme", Plan: "pro", Amount: 2, PaidAtMs: msOf(2026, 2, 2)},
	}
	if _, err := w.WriteAll(events); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	var names []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			names = append(names, info.Name())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 files, got %d", len(names))
	}

	seen := make(map[string]bool)
	for _, name := range names {
		if !strings.HasPrefix(name, "events_") || !strings.HasSuffix(name, FileExt) {
			t.Errorf("unexpected file name %q", name)
		}
		if !strings.Contains(name, "_7_") {
			t.Errorf("file name %q missing worker id component", name)
		}
		if seen[name] {
			t.Errorf("duplicate file name %q", name)
		}
		seen[name] = true
	}
}

func TestWriteAllObservesLatency(t *testing.T) {
	w := NewPartitionWriter(t.TempDir(), 0, parquet.DefaultOptions())

	var observed int
	w.onWrite = func(time.Duration) { observed++ }

	events := []event.Event{
		{TenantID: "acme", Plan: "pro", Amount: 1, PaidAtMs: msOf(2026, 2, 1)},
		{TenantID: "globex", Plan: "pro", Amount: 2, PaidAtMs: msOf(2026, 2, 1)},
	}
	if _, err := w.WriteAll(events); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if observed != 2 {
		t.Errorf("expected 2 latency observations, got %d", observed)
	}
}
