package pipeline

import (
	"context"
	"fmt"
	"sync"

	"hlspiped/internal/config"
	"hlspiped/internal/logger"
	"hlspiped/internal/manifest"
	"hlspiped/internal/metrics"
	"hlspiped/internal/queue"
	"hlspiped/internal/sink"
	"hlspiped/internal/transform"
	"hlspiped/internal/transport"
)

// Controller owns the pipeline lifecycle: it wires the producer and
// consumer to one shared queue and stats record, starts them as two
// goroutines, and stops them cooperatively.
type Controller struct {
	cfg    *config.Config
	log    logger.Logger
	met    *metrics.Metrics
	client *transport.Client
	engine transform.Engine

	// OnSegmentReady and OnSegmentPlayed are optional progress
	// callbacks, invoked from the pipeline goroutines after each
	// successful production and emission. Set them before Start.
	OnSegmentReady  func(Stats)
	OnSegmentPlayed func(Stats)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	dst     sink.Sink
	queue   *queue.Queue
	stats   *statsTracker
	tm      timings
}

// New creates a controller. Nothing runs until Start.
func New(cfg *config.Config, log logger.Logger, met *metrics.Metrics, client *transport.Client, engine transform.Engine) *Controller {
	return &Controller{
		cfg:    cfg,
		log:    log,
		met:    met,
		client: client,
		engine: engine,
		tm:     defaultTimings(),
	}
}

// Connect binds the downstream sink. Call it before Start for segments
// to have anywhere to go; with no sink attached, produced segments back
// up against the buffer ceiling, which is a handled backpressure case.
func (c *Controller) Connect(dst sink.Sink) {
	c.mu.Lock()
	c.dst = dst
	c.mu.Unlock()
}

// Disconnect detaches dst if it is still the bound sink. A sink that
// was already replaced is left alone.
func (c *Controller) Disconnect(dst sink.Sink) {
	c.mu.Lock()
	if c.dst == dst {
		c.dst = nil
	}
	c.mu.Unlock()
}

func (c *Controller) currentSink() sink.Sink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dst
}

// Start initializes the transform engine and launches the producer and
// consumer loops. Idempotent: a second Start while running is a no-op.
// An engine initialization failure rejects the start before either loop
// launches.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	if err := c.engine.Initialize(context.Background()); err != nil {
		return fmt.Errorf("pipeline start rejected: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.queue = queue.New(c.cfg.MaxBuffer)
	c.stats = newStatsTracker()
	c.running = true

	prod := &producer{
		cfg:         c.cfg,
		log:         c.log,
		met:         c.met,
		resolver:    manifest.NewResolver(c.client, c.log),
		client:      c.client,
		transformer: transform.New(c.engine, c.log),
		dedup:       manifest.NewDeduplicator(),
		queue:       c.queue,
		stats:       c.stats,
		tm:          c.tm,
		onReady:     c.OnSegmentReady,
	}
	cons := &consumer{
		cfg:      c.cfg,
		log:      c.log,
		met:      c.met,
		queue:    c.queue,
		stats:    c.stats,
		tm:       c.tm,
		sink:     c.currentSink,
		onPlayed: c.OnSegmentPlayed,
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		prod.run(ctx)
	}()
	go func() {
		defer c.wg.Done()
		cons.run(ctx)
	}()

	c.log.Infof("Pipeline started: manifest=%s minBuffer=%d maxBuffer=%d segmentDuration=%s",
		c.cfg.ManifestURL, c.cfg.MinBuffer, c.cfg.MaxBuffer, c.cfg.SegmentDuration())
	return nil
}

// Stop detaches the sink, cancels both loops, waits for them to exit,
// and clears the queue. Cancellation is cooperative: an in-flight fetch
// or transform finishes before its loop observes the stop.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.dst = nil
	cancel := c.cancel
	q := c.queue
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	q.Clear()
	c.log.Infof("Pipeline stopped")
}

// Running reports whether the pipeline loops are live.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Stats returns a snapshot of pipeline progress. Before the first Start
// it returns the zero-progress snapshot.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	tracker := c.stats
	c.mu.Unlock()

	if tracker == nil {
		return Stats{CurrentlyPlaying: -1, CurrentlyProcessing: -1}
	}
	return tracker.Snapshot()
}

// BufferLen returns current queue occupancy, for gauge refreshes.
func (c *Controller) BufferLen() int {
	c.mu.Lock()
	q := c.queue
	c.mu.Unlock()

	if q == nil {
		return 0
	}
	return q.Len()
}
