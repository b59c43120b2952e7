// Package ratelimit implements the per-source requests-per-minute gate.
// A sliding window of request timestamps is kept per source; the gate
// computes how long a caller must wait before the next request fits the
// budget. It is a scheduling aid, never a hard block.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Ledger records request timestamps per source and answers window queries.
// MemoryLedger is the default; RedisLedger shares the window across
// processes collecting the same source.
type Ledger interface {
	// Record appends a request timestamp for the source.
	Record(ctx context.Context, source string, at time.Time) error

	// CountSince returns the number of recorded timestamps at or after
	// cutoff.
	CountSince(ctx context.Context, source string, cutoff time.Time) (int, error)

	// OldestSince returns the oldest recorded timestamp at or after
	// cutoff, and false when the window is empty.
	OldestSince(ctx context.Context, source string, cutoff time.Time) (time.Time, bool, error)
}

// MemoryLedger is a process-local Ledger guarded by a single mutex.
// Call volumes are tens per minute, so contention is not a concern.
type MemoryLedger struct {
	mu    sync.Mutex
	calls map[string][]time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		calls: make(map[string][]time.Time),
	}
}

// Record implements Ledger. Entries older than the window are pruned
// lazily on every write.
func (l *MemoryLedger) Record(_ context.Context, source string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[source] = append(l.prune(source, at.Add(-Window)), at)
	return nil
}

// CountSince implements Ledger.
func (l *MemoryLedger) CountSince(_ context.Context, source string, cutoff time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[source] = l.prune(source, cutoff)
	return len(l.calls[source]), nil
}

// OldestSince implements Ledger.
func (l *MemoryLedger) OldestSince(_ context.Context, source string, cutoff time.Time) (time.Time, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[source] = l.prune(source, cutoff)
	entries := l.calls[source]
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return entries[0], true, nil
}

// prune drops entries before cutoff. Caller holds the mutex. Timestamps
// are appended in order, so the slice stays sorted.
func (l *MemoryLedger) prune(source string, cutoff time.Time) []time.Time {
	entries := l.calls[source]
	idx := 0
	for idx < len(entries) && entries[idx].Before(cutoff) {
		idx++
	}
	return entries[idx:]
}
