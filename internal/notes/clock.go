package notes

import "sync/atomic"

// Clock stamps each operation with a sequence number for log correlation.
// SeqClock is the only implementation; tests substitute their own.
type Clock interface {
	Next() int64
}

// SeqClock is a monotonic logical clock.
//
// Thread-safety: SeqClock is safe for concurrent use (atomic operations).
type SeqClock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
// The first call to Next returns 1.
func NewClock() *SeqClock {
	return &SeqClock{}
}

// Next returns the next sequence number and increments the clock.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}
