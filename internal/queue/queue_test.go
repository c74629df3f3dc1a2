package queue_test

import (
	"testing"

	"hlspiped/internal/models"
	"hlspiped/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(n int64) *models.ProcessedSegment {
	return &models.ProcessedSegment{Seq: n, Payload: []byte{byte(n)}}
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := queue.New(5)

	for i := int64(0); i < 3; i++ {
		require.NoError(t, q.Push(seg(i)))
	}
	assert.Equal(t, 3, q.Len())

	for i := int64(0); i < 3; i++ {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, got.Seq)
	}

	_, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_CapacityCeiling(t *testing.T) {
	q := queue.New(2)

	require.NoError(t, q.Push(seg(0)))
	assert.False(t, q.Full())
	require.NoError(t, q.Push(seg(1)))
	assert.True(t, q.Full())

	err := q.Push(seg(2))
	assert.ErrorIs(t, err, queue.ErrFull)
	assert.Equal(t, 2, q.Len())

	// Draining one reopens capacity.
	_, ok := q.Pop()
	require.True(t, ok)
	assert.False(t, q.Full())
	require.NoError(t, q.Push(seg(2)))
}

func TestQueue_Clear(t *testing.T) {
	q := queue.New(5)
	require.NoError(t, q.Push(seg(0)))
	require.NoError(t, q.Push(seg(1)))

	q.Clear()
	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueue_Signals(t *testing.T) {
	q := queue.New(5)

	require.NoError(t, q.Push(seg(0)))
	select {
	case <-q.Pushed():
	default:
		t.Fatal("expected a push signal")
	}

	_, ok := q.Pop()
	require.True(t, ok)
	select {
	case <-q.Popped():
	default:
		t.Fatal("expected a pop signal")
	}

	// Signals coalesce: many pushes leave at most one pending signal.
	require.NoError(t, q.Push(seg(1)))
	require.NoError(t, q.Push(seg(2)))
	<-q.Pushed()
	select {
	case <-q.Pushed():
		t.Fatal("signals should coalesce")
	default:
	}
}
