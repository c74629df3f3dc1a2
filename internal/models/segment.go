package models

// SegmentRef identifies one media segment discovered in a playlist.
// Refs are immutable once parsed and are discarded after scheduling.
type SegmentRef struct {
	// Key is the stable dedup identity: the last path component of
	// Location with any query string stripped.
	Key string
	// Location is the fully-qualified URL the segment is fetched from.
	Location string
}

// ProcessedSegment is one transformed segment awaiting playback.
// Ownership moves with the value: producer until enqueued, queue while
// buffered, consumer after dequeue.
type ProcessedSegment struct {
	// Seq is the monotonic production-order index, assigned when the
	// segment is scheduled. Skipped segments leave permanent gaps.
	Seq int64
	// Payload is the playable-format segment data.
	Payload []byte
}
