// Package dedup implements the time-windowed, size-bounded deduplication
// set used to recognize already-seen packet and fragment identifiers.
// Rather than running its own cleanup goroutine, a Deduplicator is cleaned
// lazily from the mesh engine's single-writer task so it never needs its
// own lock-protected ticker: IsDuplicate and MarkProcessed are the only
// places cleanup runs, bounded to once per cleanupInterval.
package dedup

import (
	"sync"
	"time"
)

// cleanupInterval bounds how often an IsDuplicate/MarkProcessed call may
// trigger a sweep for expired entries.
const cleanupInterval = 10 * time.Second

// Deduplicator is a bounded, time-windowed set of identifiers.
type Deduplicator struct {
	window     time.Duration
	maxEntries int

	mu          sync.Mutex
	entries     map[string]time.Time
	lastCleanup time.Time
	now         func() time.Time
}

// New creates a Deduplicator that retains entries for at most window and
// never holds more than maxEntries at once.
func New(window time.Duration, maxEntries int) *Deduplicator {
	return &Deduplicator{
		window:      window,
		maxEntries:  maxEntries,
		entries:     make(map[string]time.Time),
		lastCleanup: time.Time{},
		now:         time.Now,
	}
}

// IsDuplicate reports whether id has already been marked processed. It also
// triggers the periodic cleanup sweep (at most once per cleanupInterval).
func (d *Deduplicator) IsDuplicate(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.maybeCleanup()
	_, exists := d.entries[id]
	return exists
}

// MarkProcessed inserts id with the current timestamp. If this pushes the
// set over maxEntries, the oldest half (by insertion time) is emergency
// evicted.
func (d *Deduplicator) MarkProcessed(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.maybeCleanup()
	d.entries[id] = d.now()

	if len(d.entries) > d.maxEntries {
		d.evictOldestHalf()
	}
}

// Reset clears the deduplicator entirely.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = make(map[string]time.Time)
}

// Size returns the number of entries currently retained.
func (d *Deduplicator) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *Deduplicator) maybeCleanup() {
	now := d.now()
	if !d.lastCleanup.IsZero() && now.Sub(d.lastCleanup) < cleanupInterval {
		return
	}
	d.lastCleanup = now

	cutoff := now.Add(-d.window)
	for id, seenAt := range d.entries {
		if seenAt.Before(cutoff) {
			delete(d.entries, id)
		}
	}
}

// evictOldestHalf drops the oldest half of entries by insertion time. Called
// only while d.mu is held.
func (d *Deduplicator) evictOldestHalf() {
	type entry struct {
		id     string
		seenAt time.Time
	}
	ordered := make([]entry, 0, len(d.entries))
	for id, seenAt := range d.entries {
		ordered = append(ordered, entry{id, seenAt})
	}

	// simple insertion sort is fine here: maxEntries is a small bounded
	// configuration constant (hundreds to low thousands), not a hot path.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].seenAt.Before(ordered[j-1].seenAt); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	toEvict := len(ordered) / 2
	for i := 0; i < toEvict; i++ {
		delete(d.entries, ordered[i].id)
	}
}
