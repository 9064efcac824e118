package notes

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrIDSpaceExhausted is returned by SizeAllocator when the map already holds
// more notes than a uint32 id can address.
var ErrIDSpaceExhausted = errors.New("notes: id space exhausted")

// Allocator chooses the id for a new note. It runs under the Service mutex,
// immediately before the note is inserted.
type Allocator func(ctx context.Context, m OrderedMap) (uint32, error)

// SizeAllocator assigns id = number of live notes.
//
// This reproduces the allocation rule of the system this store replaces.
// After any deletion the computed id can equal a live note's id, and the new
// note then overwrites it. The Service logs a warning when that happens.
// Use MonotonicAllocator for unique ids.
func SizeAllocator(ctx context.Context, m OrderedMap) (uint32, error) {
	n, err := m.Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	if uint64(n) > math.MaxUint32 {
		return 0, ErrIDSpaceExhausted
	}
	return uint32(n), nil
}

// MonotonicAllocator draws ids from a durable sequence, so an id is never
// reused, even after deletions or restarts.
func MonotonicAllocator(seq KeySequence) Allocator {
	return func(ctx context.Context, _ OrderedMap) (uint32, error) {
		id, err := seq.NextKey(ctx)
		if err != nil {
			return 0, fmt.Errorf("next id: %w", err)
		}
		return id, nil
	}
}
