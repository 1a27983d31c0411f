// Package schedule provides a cancellable, re-armable delayed task.
//
// A Task holds at most one pending run. Scheduling again cancels the pending
// run before arming a new one, which is the debounce primitive used by the
// availability checker.
package schedule

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Task runs a function once after a fixed delay unless it is re-scheduled or
// cancelled first.
type Task struct {
	clock clock.WithDelayedExecution
	delay time.Duration

	mu      sync.Mutex
	timer   clock.Timer
	gen     uint64
	pending bool
}

// NewTask creates a Task. A nil clock uses the wall clock.
func NewTask(clk clock.WithDelayedExecution, delay time.Duration) *Task {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Task{clock: clk, delay: delay}
}

// Schedule cancels any pending run and arms fn to run after the delay.
func (t *Task) Schedule(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.pending = true
	t.timer = t.clock.AfterFunc(t.delay, func() {
		// A timer that already fired cannot be stopped; the generation check
		// drops runs superseded while they were being dispatched.
		t.mu.Lock()
		if gen != t.gen || !t.pending {
			t.mu.Unlock()
			return
		}
		t.pending = false
		t.timer = nil
		t.mu.Unlock()

		fn()
	})
}

// Cancel drops the pending run. It reports whether a run was pending.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasPending := t.pending
	t.stopLocked()
	t.gen++
	return wasPending
}

// Pending reports whether a run is armed.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

func (t *Task) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = false
}
