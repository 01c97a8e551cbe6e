// Package event defines the payment event record and its partition key.
package event

import (
	"path/filepath"
	"time"
)

// Event represents a single payment event. Events are immutable once
// written to a partition file.
type Event struct {
	// TenantID identifies the paying tenant (e.g., "acme").
	TenantID string

	// Plan is the subscription plan the payment was made for.
	Plan string

	// Amount is the non-negative payment amount, 2 decimal places.
	Amount float64

	// PaidAtMs is the payment time as a Unix timestamp in milliseconds.
	PaidAtMs int64
}

// PaidAt returns the payment time as a time.Time.
func (e *Event) PaidAt() time.Time {
	return time.UnixMilli(e.PaidAtMs)
}

// Key returns the partition key for this event.
func (e *Event) Key() PartitionKey {
	return PartitionKey{
		TenantID: e.TenantID,
		Date:     time.UnixMilli(e.PaidAtMs).UTC().Format(DateLayout),
	}
}

// DateLayout is the calendar-day format used in partition paths.
const DateLayout = "2006-01-02"

// PartitionKey identifies the partition an event belongs to:
// the tenant plus the UTC calendar day of paid_at.
type PartitionKey struct {
	TenantID string
	Date     string // YYYY-MM-DD, UTC
}

// Path returns the partition directory path relative to the store root,
// e.g. "tenant=acme/date=2026-02-01". The path encoding is the store's
// only catalog: a file's partition is derivable from its location alone.
func (k PartitionKey) Path() string {
	return filepath.Join("tenant="+k.TenantID, "date="+k.Date)
}

// String returns a human-readable form of the key.
func (k PartitionKey) String() string {
	return k.TenantID + "/" + k.Date
}

// Batch represents a collection of events for batch processing.
type Batch struct {
	Events []Event
}

// NewBatch creates a new batch with the given capacity.
func NewBatch(capacity int) *Batch {
	return &Batch{
		Events: make([]Event, 0, capacity),
	}
}

// Add appends an event to the batch.
func (b *Batch) Add(e Event) {
	b.Events = append(b.Events, e)
}

// Len returns the number of events in the batch.
func (b *Batch) Len() int {
	return len(b.Events)
}
