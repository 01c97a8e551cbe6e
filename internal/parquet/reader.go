package parquet

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/xtxerr/paylake/internal/event"
)

// cursorBatchSize is the number of rows a Cursor buffers per read.
// It bounds per-file memory regardless of file size.
const cursorBatchSize = 1024

// EventReader reads events from a Parquet file.
type EventReader struct {
	file   *os.File
	reader *parquet.GenericReader[EventRow]
	path   string
}

// NewEventReader creates a new event Parquet reader. A file whose footer
// cannot be parsed (truncated, corrupt, not parquet) fails here with an
// error, so callers can skip it.
func NewEventReader(path string) (*EventReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size(), parquet.ReadBufferSize(1024*1024))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("parse parquet file: %w", err)
	}

	reader := parquet.NewGenericReader[EventRow](pf)

	return &EventReader{
		file:   f,
		reader: reader,
		path:   path,
	}, nil
}

// Read reads up to n events from the file.
func (r *EventReader) Read(n int) ([]event.Event, error) {
	rows := make([]EventRow, n)
	count, err := r.reader.Read(rows)
	if count == 0 && err != nil {
		return nil, err
	}

	events := make([]event.Event, count)
	for i := 0; i < count; i++ {
		events[i] = RowToEvent(&rows[i])
	}

	return events, nil
}

// ReadAll reads all events from the file.
func (r *EventReader) ReadAll() ([]event.Event, error) {
	numRows := r.reader.NumRows()
	rows := make([]EventRow, numRows)

	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}

	events := make([]event.Event, n)
	for i := 0; i < n; i++ {
		events[i] = RowToEvent(&rows[i])
	}

	return events, nil
}

// NumRows returns the total number of rows in the file.
func (r *EventReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *EventReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *EventReader) Path() string {
	return r.path
}

// Cursor returns a forward-only iterator over the file's events.
// A cursor buffers at most cursorBatchSize rows at a time.
func (r *EventReader) Cursor() *Cursor {
	return &Cursor{
		reader: r.reader,
		buf:    make([]EventRow, cursorBatchSize),
	}
}

// Cursor iterates a Parquet file one event at a time.
type Cursor struct {
	reader *parquet.GenericReader[EventRow]
	buf    []EventRow
	pos    int
	n      int
	err    error
}

// Next returns the next event. It returns io.EOF when the file is
// exhausted, or the underlying read error.
func (c *Cursor) Next() (event.Event, error) {
	if c.pos >= c.n {
		if c.err != nil {
			return event.Event{}, c.err
		}

		n, err := c.reader.Read(c.buf)
		if n == 0 {
			if err == nil {
				err = io.EOF
			}
			return event.Event{}, err
		}

		// The reader may return rows together with io.EOF; serve the
		// rows now and surface the error on the following call.
		c.n = n
		c.pos = 0
		c.err = err
	}

	e := RowToEvent(&c.buf[c.pos])
	c.pos++
	return e, nil
}

// FileInfo holds information about a Parquet partition file.
type FileInfo struct {
	Path    string
	Size    int64
	NumRows int64
}

// GetFileInfo returns information about a Parquet file.
func GetFileInfo(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("parse parquet file: %w", err)
	}

	return &FileInfo{
		Path:    path,
		Size:    stat.Size(),
		NumRows: pf.NumRows(),
	}, nil
}
