package transform

import (
	"context"
	"sync/atomic"

	"hlspiped/internal/logger"
)

// Engine is the external codec step: a one-time initialization plus an
// opaque function from raw segment bytes to playable-format bytes.
type Engine interface {
	// Initialize prepares the engine. Called once before the pipeline
	// launches; failure rejects the whole start.
	Initialize(ctx context.Context) error
	// Run converts one segment. Treated as fallible and potentially slow.
	Run(ctx context.Context, raw []byte) ([]byte, error)
}

// Transformer isolates engine invocations. At most one segment is
// mid-transform at any time; InFlight exposes that invariant to the
// producer.
type Transformer struct {
	engine   Engine
	logger   logger.Logger
	inFlight atomic.Bool
}

// New creates a transformer around the given engine.
func New(engine Engine, log logger.Logger) *Transformer {
	return &Transformer{engine: engine, logger: log}
}

// InFlight reports whether a transform is currently running.
func (t *Transformer) InFlight() bool {
	return t.inFlight.Load()
}

// Transform runs the engine on one segment. On failure it logs and
// returns nil so the caller can skip the segment without crashing the
// loop; retry policy belongs to the caller and none is applied here.
func (t *Transformer) Transform(ctx context.Context, raw []byte, seq int64) []byte {
	t.inFlight.Store(true)
	defer t.inFlight.Store(false)

	out, err := t.engine.Run(ctx, raw)
	if err != nil {
		t.logger.Warnf("Transform failed for segment %d: %v", seq, err)
		return nil
	}
	return out
}
