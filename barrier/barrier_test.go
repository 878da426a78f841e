package barrier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBarrier_ReleasedComplete(t *testing.T) {
	b := New("checkpoint", []string{"a", "b", "c"}, 5*time.Second)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			b.Arrive(id)
		}(id)
	}
	wg.Wait()

	state := b.Await(context.Background())
	assert.Equal(t, StateReleasedComplete, state)
	assert.Equal(t, 3, b.Arrived())
	assert.Empty(t, b.Failures())
}

func TestBarrier_ReleasedTimeout(t *testing.T) {
	b := New("checkpoint", []string{"a", "b"}, 20*time.Millisecond)
	b.Arrive("a")

	start := time.Now()
	state := b.Await(context.Background())
	assert.Equal(t, StateReleasedTimeout, state)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, b.Arrived())
}

func TestBarrier_ArriveIsIdempotent(t *testing.T) {
	b := New("checkpoint", []string{"a", "b"}, 0)

	b.Arrive("a")
	b.Arrive("a")
	b.Arrive("a")
	assert.Equal(t, 1, b.Arrived())
	assert.Equal(t, StatePending, b.State())

	b.Arrive("b")
	assert.Equal(t, StateReleasedComplete, b.State())
}

func TestBarrier_UnknownParticipantIgnored(t *testing.T) {
	b := New("checkpoint", []string{"a"}, 0)

	b.Arrive("stranger")
	assert.Equal(t, 0, b.Arrived())

	b.Arrive("a")
	assert.Equal(t, StateReleasedComplete, b.State())
}

func TestBarrier_ArriveWithFailureCountsAsArrived(t *testing.T) {
	b := New("checkpoint", []string{"a", "b"}, 5*time.Second)

	b.Arrive("a")
	b.ArriveWithFailure("b")

	state := b.Await(context.Background())
	assert.Equal(t, StateReleasedComplete, state)
	assert.Equal(t, []string{"b"}, b.Failures())
}

func TestBarrier_AwaitCancellation(t *testing.T) {
	b := New("checkpoint", []string{"a"}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := b.Await(ctx)
	assert.Equal(t, StateReleasedTimeout, state)
}

func TestBarrier_NoParticipants(t *testing.T) {
	b := New("checkpoint", nil, time.Second)
	assert.Equal(t, StateReleasedComplete, b.State())
	assert.Equal(t, StateReleasedComplete, b.Await(context.Background()))
}

func TestBarrier_LateArrivalAfterTimeoutIsNoOp(t *testing.T) {
	b := New("checkpoint", []string{"a", "b"}, 10*time.Millisecond)

	state := b.Await(context.Background())
	assert.Equal(t, StateReleasedTimeout, state)

	b.Arrive("a")
	assert.Equal(t, 0, b.Arrived())
	assert.Equal(t, StateReleasedTimeout, b.State())
}
