// Package barrier provides the rendezvous primitive used to align concurrent
// agents at designated checkpoints. A Barrier is created with the full set of
// expected participant identifiers and releases either when all of them have
// arrived (Released-Complete) or when its timeout elapses (Released-Timeout,
// a partial release).
//
// Arrivals are idempotent: a second arrival by the same participant is a
// no-op, not an error. A participant that fails before reaching the
// checkpoint must still be counted via ArriveWithFailure, otherwise the
// barrier would hang; the strategy executor is responsible for invoking it on
// agent failure.
package barrier

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle state of a barrier.
type State string

const (
	// StatePending means the barrier is still waiting for arrivals.
	StatePending State = "pending"
	// StateReleasedComplete means every participant arrived.
	StateReleasedComplete State = "released-complete"
	// StateReleasedTimeout means the timeout elapsed (or the run was
	// cancelled) before full arrival; the release is partial.
	StateReleasedTimeout State = "released-timeout"
)

// Barrier is a named, single-use rendezvous point. It is created at the start
// of a synchronization phase and discarded once released.
type Barrier struct {
	name    string
	timeout time.Duration

	mu           sync.Mutex
	participants map[string]bool
	arrived      map[string]bool
	failed       map[string]bool
	state        State
	released     chan struct{}
}

// New creates a barrier expecting the given participants. A zero timeout
// means Await only releases on full arrival or caller cancellation.
func New(name string, participants []string, timeout time.Duration) *Barrier {
	b := &Barrier{
		name:         name,
		timeout:      timeout,
		participants: make(map[string]bool, len(participants)),
		arrived:      make(map[string]bool, len(participants)),
		failed:       make(map[string]bool),
		state:        StatePending,
		released:     make(chan struct{}),
	}
	for _, p := range participants {
		b.participants[p] = true
	}
	if len(b.participants) == 0 {
		// Nothing to wait for.
		b.state = StateReleasedComplete
		close(b.released)
	}
	return b
}

// Name returns the barrier's name (used in logs and reports).
func (b *Barrier) Name() string { return b.name }

// Arrive registers one arrival and returns immediately. Arrivals by unknown
// participants and repeated arrivals are no-ops.
func (b *Barrier) Arrive(participantID string) {
	b.arrive(participantID, false)
}

// ArriveWithFailure registers the arrival of a participant that failed before
// reaching the checkpoint, so the barrier can still release by completion.
func (b *Barrier) ArriveWithFailure(participantID string) {
	b.arrive(participantID, true)
}

func (b *Barrier) arrive(participantID string, failure bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StatePending || !b.participants[participantID] || b.arrived[participantID] {
		return
	}

	b.arrived[participantID] = true
	if failure {
		b.failed[participantID] = true
	}

	if len(b.arrived) == len(b.participants) {
		b.state = StateReleasedComplete
		close(b.released)
	}
}

// Await suspends the caller until the barrier releases by completion, by
// timeout, or by caller cancellation (reported as a timeout release since the
// arrival set is partial). It returns the terminal state.
func (b *Barrier) Await(ctx context.Context) State {
	var timeoutCh <-chan time.Time
	if b.timeout > 0 {
		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-b.released:
		return b.State()
	case <-timeoutCh:
		return b.expire()
	case <-ctx.Done():
		return b.expire()
	}
}

// expire transitions a still-pending barrier to the timeout state.
func (b *Barrier) expire() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StatePending {
		b.state = StateReleasedTimeout
		close(b.released)
	}
	return b.state
}

// State returns the current lifecycle state.
func (b *Barrier) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Arrived returns the number of registered arrivals (including failures).
func (b *Barrier) Arrived() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.arrived)
}

// Failures returns the identifiers that arrived via ArriveWithFailure.
func (b *Barrier) Failures() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.failed))
	for id := range b.failed {
		ids = append(ids, id)
	}
	return ids
}
