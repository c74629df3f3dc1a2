package manifest_test

import (
	"testing"

	"hlspiped/internal/manifest"

	"github.com/stretchr/testify/assert"
)

func TestDeduplicator(t *testing.T) {
	d := manifest.NewDeduplicator()

	assert.False(t, d.Seen("seg0.ts"))
	d.Mark("seg0.ts")
	assert.True(t, d.Seen("seg0.ts"))
	assert.False(t, d.Seen("seg1.ts"))

	// Marking is idempotent.
	d.Mark("seg0.ts")
	d.Mark("seg0.ts")
	assert.Equal(t, 1, d.Size())

	d.Mark("seg1.ts")
	assert.Equal(t, 2, d.Size())
}
