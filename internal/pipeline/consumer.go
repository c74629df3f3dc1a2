package pipeline

import (
	"context"
	"time"

	"hlspiped/internal/config"
	"hlspiped/internal/logger"
	"hlspiped/internal/metrics"
	"hlspiped/internal/queue"
	"hlspiped/internal/sink"
)

// consumer waits for the warm-up threshold, then drains the queue
// oldest-first and emits segments to the sink at a pace derived from
// the segment duration. An empty queue is a transient underrun, never
// a fatal condition.
type consumer struct {
	cfg      *config.Config
	log      logger.Logger
	met      *metrics.Metrics
	queue    *queue.Queue
	stats    *statsTracker
	tm       timings
	sink     func() sink.Sink
	onPlayed func(Stats)
}

func (c *consumer) run(ctx context.Context) {
	c.log.Infof("Consumer loop started, warm-up threshold %d", c.cfg.MinBuffer)

	if !c.warmUp(ctx) {
		c.log.Infof("Consumer loop stopped")
		return
	}
	c.log.Infof("Warm-up threshold reached, playback starting")

	first := true
	for {
		if ctx.Err() != nil {
			c.log.Infof("Consumer loop stopped")
			return
		}

		dst := c.sink()
		if dst == nil {
			// No sink attached: leave segments buffered and let
			// backpressure hold the producer.
			select {
			case <-ctx.Done():
			case <-time.After(c.tm.underrun):
			}
			continue
		}

		seg, ok := c.queue.Pop()
		if !ok {
			c.log.Debugf("Buffer underrun, waiting for segments")
			select {
			case <-ctx.Done():
			case <-c.queue.Pushed():
			case <-time.After(c.tm.underrun):
			}
			continue
		}

		occupancy := c.queue.Len()
		c.stats.setPlaying(seg.Seq, occupancy)
		c.met.IncSegmentsPlayed()
		c.met.SetBufferSize(occupancy)

		if err := dst.Write(seg.Payload); err != nil {
			c.log.Warnf("Sink write failed for segment %d: %v", seg.Seq, err)
		} else {
			c.log.Debugf("Emitted segment %d, buffer %d", seg.Seq, occupancy)
		}

		if c.onPlayed != nil {
			c.onPlayed(c.stats.Snapshot())
		}

		pause := c.cfg.SegmentDuration()
		if first {
			// Priming delay: give the sink one beat to initialize
			// before steady-state pacing takes over.
			pause = c.tm.priming
			first = false
		}
		select {
		case <-ctx.Done():
			c.log.Infof("Consumer loop stopped")
			return
		case <-time.After(pause):
		}
	}
}

// warmUp blocks until queue occupancy reaches the warm-up threshold.
// Returns false when the run is cancelled first.
func (c *consumer) warmUp(ctx context.Context) bool {
	for c.queue.Len() < c.cfg.MinBuffer {
		select {
		case <-ctx.Done():
			return false
		case <-c.queue.Pushed():
		case <-time.After(c.tm.warmupPoll):
		}
	}
	return true
}
