package generate

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xtxerr/paylake/internal/event"
	"github.com/xtxerr/paylake/internal/logging"
	"github.com/xtxerr/paylake/internal/parquet"
)

var log = logging.Component("generate")

// FileExt is the extension of partition files.
const FileExt = ".parquet"

// filePrefix names the purpose of partition files.
const filePrefix = "events"

// PartitionWriter persists a batch of events as one immutable Parquet
// file per (tenant, date) partition. File names carry a wall-clock
// millisecond timestamp, the worker id, and a per-writer sequence number,
// so concurrent workers sharing a partition directory can never clobber
// each other.
type PartitionWriter struct {
	root     string // events root, e.g. <data_dir>/events
	workerID int
	opts     parquet.Options
	seq      int

	// onWrite, if set, observes per-file write latency.
	onWrite func(time.Duration)
}

// NewPartitionWriter creates a writer for one worker.
func NewPartitionWriter(root string, workerID int, opts parquet.Options) *PartitionWriter {
	return &PartitionWriter{
		root:     root,
		workerID: workerID,
		opts:     opts,
	}
}

// WriteAll groups events by partition key and writes exactly one new file
// per group. It returns the number of files written. A write failure is
// fatal: the error is returned immediately and no retry is attempted.
// Groups are never merged into one file.
func (w *PartitionWriter) WriteAll(events []event.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	groups := make(map[event.PartitionKey][]event.Event)
	for i := range events {
		key := events[i].Key()
		groups[key] = append(groups[key], events[i])
	}

	files := 0
	for key, group := range groups {
		if err := w.writeGroup(key, group); err != nil {
			return files, fmt.Errorf("partition %s: %w", key, err)
		}
		files++
	}

	log.Debug("batch written", "worker", w.workerID, "records", len(events), "files", files)
	return files, nil
}

// writeGroup writes one partition file. Directory creation is idempotent
// (EventWriter uses MkdirAll), so concurrent workers racing to create the
// same partition directory cannot fail the operation.
func (w *PartitionWriter) writeGroup(key event.PartitionKey, group []event.Event) error {
	name := fmt.Sprintf("%s_%d_%d_%d%s",
		filePrefix, time.Now().UnixMilli(), w.workerID, w.seq, FileExt)
	w.seq++

	path := filepath.Join(w.root, key.Path(), name)

	start := time.Now()

	pw, err := parquet.NewEventWriter(path, w.opts)
	if err != nil {
		return err
	}
	if err := pw.Write(group); err != nil {
		pw.Close()
		return err
	}
	if err := pw.Close(); err != nil {
		return err
	}

	if w.onWrite != nil {
		w.onWrite(time.Since(start))
	}
	return nil
}
