package pipeline

import "time"

// timings are the effective latency bounds of both loops. Waits are
// event-driven where a queue signal exists, with these values as upper
// bounds; tests shrink them.
type timings struct {
	// idle separates producer cycles.
	idle time.Duration
	// inFlightWait is the recheck interval while a transform is running.
	inFlightWait time.Duration
	// bufferFull is the backpressure wait bound when the queue is at capacity.
	bufferFull time.Duration
	// emptyManifest is the wait after a manifest that lists no segments yet.
	emptyManifest time.Duration
	// manifestError is the longer backoff after a failed manifest resolution.
	manifestError time.Duration
	// warmupPoll is the consumer's recheck bound before the warm-up
	// threshold is reached.
	warmupPoll time.Duration
	// underrun is the consumer's wait when the queue runs empty.
	underrun time.Duration
	// priming is the pause after the first emission, giving the sink
	// time to initialize.
	priming time.Duration
}

func defaultTimings() timings {
	return timings{
		idle:          100 * time.Millisecond,
		inFlightWait:  100 * time.Millisecond,
		bufferFull:    time.Second,
		emptyManifest: 2 * time.Second,
		manifestError: 3 * time.Second,
		warmupPoll:    100 * time.Millisecond,
		underrun:      500 * time.Millisecond,
		priming:       time.Second,
	}
}
