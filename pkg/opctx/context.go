// Package opctx carries the deterministic execution context that replaces
// wall-clock time and randomness inside the privacy engine. Every mutating
// operation receives a Context holding the consensus-agreed logical timestamp
// and the unique transaction identifier for the invocation; replicas replaying
// the same inputs derive byte-identical state from it.
package opctx

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Context is the deterministic per-operation context. It is passed by value
// into each engine operation and never stored as shared state.
type Context struct {
	// TxID uniquely identifies the operation; all replicas observe the same
	// value for the same logical operation.
	TxID string

	// Timestamp is the logical operation time, monotonically non-decreasing
	// across operations as seen by any replica.
	Timestamp time.Time
}

// New creates a Context from externally supplied consensus data
func New(txID string, timestamp time.Time) Context {
	return Context{TxID: txID, Timestamp: timestamp}
}

// Millis returns the logical timestamp in Unix milliseconds
func (c Context) Millis() int64 {
	return c.Timestamp.UnixMilli()
}

// Offset returns the logical timestamp shifted by d
func (c Context) Offset(d time.Duration) time.Time {
	return c.Timestamp.Add(d)
}

// Source issues operation contexts for non-replicated deployments, where no
// ordering service supplies transaction identity. Timestamps never step
// backwards even if the underlying clock does.
type Source struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewSource creates a Source backed by the system clock
func NewSource() *Source {
	return &Source{now: time.Now}
}

// NewSourceWithClock creates a Source with an injected clock for tests
func NewSourceWithClock(now func() time.Time) *Source {
	return &Source{now: now}
}

// Next issues the context for the next operation
func (s *Source) Next() Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	if ts.Before(s.last) {
		ts = s.last
	}
	s.last = ts

	return Context{
		TxID:      uuid.NewString(),
		Timestamp: ts,
	}
}
