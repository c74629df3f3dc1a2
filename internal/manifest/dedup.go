package manifest

import "sync"

// Deduplicator tracks which segment keys have already been scheduled
// for processing. A key is scheduled at most once per pipeline run:
// entries are never removed, even when processing later fails.
//
// State grows for the life of a run, which is acceptable for
// bounded-duration streams.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeduplicator creates an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Seen reports whether key has been marked.
func (d *Deduplicator) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[key]
	return ok
}

// Mark records key as scheduled. Idempotent.
func (d *Deduplicator) Mark(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[key] = struct{}{}
}

// Size returns the number of marked keys.
func (d *Deduplicator) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
