// Package stage tracks the lifecycle of the pipeline workers.
//
// Each worker owns one Tracker and moves it Idle → Processing → Idle for
// every item; Stopped is terminal and is entered only when the supervisor
// shuts the pipeline down.
package stage

import (
	"sync/atomic"
	"time"
)

// State is the lifecycle position of a worker.
type State int32

const (
	// Idle waits for the next item.
	Idle State = iota
	// Processing handles exactly one item.
	Processing
	// Stopped is terminal.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Tracker records a worker's state and per-item counters. It is safe for
// concurrent readers while the owning worker updates it.
type Tracker struct {
	name      string
	state     atomic.Int32
	processed atomic.Int64
	failed    atomic.Int64
	since     atomic.Int64
}

// NewTracker returns an Idle tracker for the named worker.
func NewTracker(name string) *Tracker {
	t := &Tracker{name: name}
	t.since.Store(time.Now().UnixNano())
	return t
}

// Name returns the worker name.
func (t *Tracker) Name() string { return t.name }

// State returns the current state.
func (t *Tracker) State() State { return State(t.state.Load()) }

// Begin moves an idle worker to Processing. It reports false once stopped.
func (t *Tracker) Begin() bool {
	if !t.state.CompareAndSwap(int32(Idle), int32(Processing)) {
		return false
	}
	t.since.Store(time.Now().UnixNano())
	return true
}

// Done returns the worker to Idle and counts the item. A failed item still
// returns to Idle; there is no retry state.
func (t *Tracker) Done(failed bool) {
	t.processed.Add(1)
	if failed {
		t.failed.Add(1)
	}
	if t.state.CompareAndSwap(int32(Processing), int32(Idle)) {
		t.since.Store(time.Now().UnixNano())
	}
}

// Stop marks the worker Stopped. It is idempotent.
func (t *Tracker) Stop() {
	if State(t.state.Swap(int32(Stopped))) != Stopped {
		t.since.Store(time.Now().UnixNano())
	}
}

// Snapshot is a point-in-time copy of a tracker.
type Snapshot struct {
	Name      string
	State     State
	Processed int64
	Failed    int64
	Since     time.Time
}

// Snapshot captures the current values.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Name:      t.name,
		State:     t.State(),
		Processed: t.processed.Load(),
		Failed:    t.failed.Load(),
		Since:     time.Unix(0, t.since.Load()),
	}
}
