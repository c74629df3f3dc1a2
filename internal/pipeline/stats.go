package pipeline

import "sync"

// Stats is a snapshot of pipeline progress, exposed to callers and the
// HTTP surface. Playing/processing indexes are -1 until the first
// segment reaches that stage.
type Stats struct {
	CurrentlyPlaying      int64 `json:"currently_playing"`
	CurrentlyProcessing   int64 `json:"currently_processing"`
	BufferSize            int   `json:"buffer_size"`
	TotalSegmentsProduced int64 `json:"total_segments_produced"`
}

// statsTracker is the shared stats record. Each field has a single
// designated writer: the producer writes CurrentlyProcessing and
// TotalSegmentsProduced, the consumer writes CurrentlyPlaying, and each
// side mirrors BufferSize only after its own queue operation. The mutex
// keeps snapshots consistent.
type statsTracker struct {
	mu sync.Mutex
	s  Stats
}

func newStatsTracker() *statsTracker {
	return &statsTracker{s: Stats{CurrentlyPlaying: -1, CurrentlyProcessing: -1}}
}

// setProcessing records the sequence index the producer is working on.
func (t *statsTracker) setProcessing(seq int64) {
	t.mu.Lock()
	t.s.CurrentlyProcessing = seq
	t.mu.Unlock()
}

// incProduced bumps the production total and mirrors queue occupancy
// immediately after an enqueue.
func (t *statsTracker) incProduced(bufLen int) {
	t.mu.Lock()
	t.s.TotalSegmentsProduced++
	t.s.BufferSize = bufLen
	t.mu.Unlock()
}

// setPlaying records the sequence index being emitted and mirrors queue
// occupancy immediately after a dequeue.
func (t *statsTracker) setPlaying(seq int64, bufLen int) {
	t.mu.Lock()
	t.s.CurrentlyPlaying = seq
	t.s.BufferSize = bufLen
	t.mu.Unlock()
}

// Snapshot returns a copy of the current stats.
func (t *statsTracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}
