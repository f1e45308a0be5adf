package command

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueue_DrainPreservesOrder verifies a single drain returns commands in FIFO order.
func TestQueue_DrainPreservesOrder(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Enqueue(AddTouch(TouchPoint{ID: 1, X: 10, Y: 20})))
	require.NoError(t, q.Enqueue(UpdateTouch(TouchPoint{ID: 1, X: 11, Y: 21})))
	require.NoError(t, q.Enqueue(RemoveTouch(1)))

	got := q.DrainAll()
	require.Len(t, got, 3)
	assert.Equal(t, KindAddTouch, got[0].Kind)
	assert.Equal(t, KindUpdateTouch, got[1].Kind)
	assert.Equal(t, KindRemoveTouch, got[2].Kind)
	assert.Zero(t, q.Len())
	assert.Nil(t, q.DrainAll(), "second drain must not replay commands")
}

// TestQueue_ConcurrentDrainKeepsFIFO interleaves a producer with a draining consumer.
func TestQueue_ConcurrentDrainKeepsFIFO(t *testing.T) {
	const total = 5000
	q := NewQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			_ = q.Enqueue(RemoveTouch(i))
		}
	}()

	var seen []int
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}
		for _, cmd := range q.DrainAll() {
			seen = append(seen, cmd.Touch.ID)
		}
	}
	for _, cmd := range q.DrainAll() {
		seen = append(seen, cmd.Touch.ID)
	}

	require.Len(t, seen, total)
	for i, id := range seen {
		if id != i {
			t.Fatalf("expected id %d at position %d, got %d", i, i, id)
		}
	}
}

// TestBoundedQueue_FullFailsEnqueue verifies a full bounded queue reports the failure.
func TestBoundedQueue_FullFailsEnqueue(t *testing.T) {
	q := NewBoundedQueue(2)
	require.NoError(t, q.Enqueue(FitAll()))
	require.NoError(t, q.Enqueue(FitAll()))
	assert.ErrorIs(t, q.Enqueue(RemoveTouch(3)), ErrQueueFull)
	assert.Equal(t, 2, q.Len())

	q.DrainAll()
	assert.NoError(t, q.Enqueue(RemoveTouch(3)))
}

// TestQueue_Discard verifies discarded commands are never drained afterwards.
func TestQueue_Discard(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(Open("/tmp/a.step"))
	_ = q.Enqueue(FitAll())

	assert.Equal(t, 2, q.Discard())
	assert.Empty(t, q.DrainAll())
}

// TestParseOrientation covers every name plus an invalid one.
func TestParseOrientation(t *testing.T) {
	for _, o := range Orientations() {
		got, err := ParseOrientation(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	got, err := ParseOrientation(" TOP ")
	require.NoError(t, err)
	assert.Equal(t, Top, got)

	_, err = ParseOrientation("axo")
	assert.Error(t, err)
	assert.False(t, Orientation(42).Valid())
}

// TestCommand_String keeps log output readable.
func TestCommand_String(t *testing.T) {
	assert.Equal(t, "resize(640,480)", Resize(640, 480).String())
	assert.Equal(t, "select(100,107.5)", Select(100, 107.5).String())
	assert.Equal(t, "set_projection(left)", SetProjection(Left).String())
	assert.Equal(t, `open("/m/part.stp")`, Open("/m/part.stp").String())
}
