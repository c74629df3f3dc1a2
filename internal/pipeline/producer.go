package pipeline

import (
	"context"
	"time"

	"hlspiped/internal/config"
	"hlspiped/internal/logger"
	"hlspiped/internal/manifest"
	"hlspiped/internal/metrics"
	"hlspiped/internal/models"
	"hlspiped/internal/queue"
	"hlspiped/internal/transform"
	"hlspiped/internal/transport"
)

// producer polls the manifest, schedules exactly one new segment per
// cycle, downloads and transforms it, and pushes the result onto the
// shared queue. Per-segment failures are logged and skipped; the
// consumed sequence index stays a permanent gap, so ordering never
// depends on retries.
type producer struct {
	cfg         *config.Config
	log         logger.Logger
	met         *metrics.Metrics
	resolver    *manifest.Resolver
	client      *transport.Client
	transformer *transform.Transformer
	dedup       *manifest.Deduplicator
	queue       *queue.Queue
	stats       *statsTracker
	tm          timings
	onReady     func(Stats)

	// nextSeq is only touched by the producer goroutine.
	nextSeq int64
}

func (p *producer) run(ctx context.Context) {
	p.log.Infof("Producer loop started for %s", p.cfg.ManifestURL)
	for {
		if ctx.Err() != nil {
			p.log.Infof("Producer loop stopped")
			return
		}

		wait, wake := p.cycle(ctx)
		select {
		case <-ctx.Done():
			p.log.Infof("Producer loop stopped")
			return
		case <-wake:
		case <-time.After(wait):
		}
	}
}

// cycle performs one production step and returns how long to wait
// before the next one. A non-nil wake channel ends the wait early on a
// queue occupancy event.
func (p *producer) cycle(ctx context.Context) (time.Duration, <-chan struct{}) {
	if p.queue.Full() {
		return p.tm.bufferFull, p.queue.Popped()
	}
	if p.transformer.InFlight() {
		return p.tm.inFlightWait, nil
	}

	content, baseURL, err := p.resolver.Resolve(ctx, p.cfg.ManifestURL)
	if err != nil {
		p.met.IncFetchErrors()
		p.log.Warnf("Manifest resolution failed: %v", err)
		return p.tm.manifestError, nil
	}

	refs, err := manifest.ParseSegments(content, baseURL)
	if err != nil {
		p.log.Warnf("Manifest unparseable: %v", err)
		return p.tm.manifestError, nil
	}
	if len(refs) == 0 {
		p.log.Debugf("Manifest lists no segments yet")
		return p.tm.emptyManifest, nil
	}

	var next *models.SegmentRef
	for i := range refs {
		if !p.dedup.Seen(refs[i].Key) {
			next = &refs[i]
			break
		}
	}
	if next == nil {
		return p.tm.idle, nil
	}

	// At-most-once scheduling: the key is burned on selection, before
	// any download or transform attempt.
	p.dedup.Mark(next.Key)
	seq := p.nextSeq
	p.nextSeq++
	p.stats.setProcessing(seq)
	p.log.Debugf("Processing segment %d (%s)", seq, next.Key)

	raw, err := p.client.FetchBinary(ctx, next.Location)
	if err != nil {
		p.met.IncFetchErrors()
		p.met.IncSegmentsSkipped()
		p.log.Warnf("Skipping segment %d (%s): download failed: %v", seq, next.Key, err)
		return p.tm.idle, nil
	}

	payload := p.transformer.Transform(ctx, raw, seq)
	if payload == nil {
		p.met.IncSegmentsSkipped()
		p.log.Warnf("Skipping segment %d (%s): transform failed", seq, next.Key)
		return p.tm.idle, nil
	}

	if ctx.Err() != nil {
		return p.tm.idle, nil
	}

	if err := p.queue.Push(&models.ProcessedSegment{Seq: seq, Payload: payload}); err != nil {
		// Single producer; the capacity check at cycle top makes this
		// unreachable unless maxBuffer is misconfigured.
		p.met.IncSegmentsSkipped()
		p.log.Errorf("Dropping segment %d: %v", seq, err)
		return p.tm.idle, nil
	}

	occupancy := p.queue.Len()
	p.stats.incProduced(occupancy)
	p.met.IncSegmentsProduced()
	p.met.SetBufferSize(occupancy)
	p.log.Infof("Enqueued segment %d, buffer %d/%d", seq, occupancy, p.cfg.MaxBuffer)

	if p.onReady != nil {
		p.onReady(p.stats.Snapshot())
	}
	return p.tm.idle, nil
}
