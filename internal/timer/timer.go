// Package timer schedules cancellable one-shot callbacks.
//
// Every Handle fires at most once, and a Stop that wins the race against the
// deadline guarantees the callback never runs.
package timer

import (
	"sync"
	"time"
)

// Handle is an opaque reference to a scheduled callback.
type Handle interface {
	// Stop cancels the callback. It reports whether the call prevented it
	// from running.
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Handle
}

// Real schedules callbacks on the wall clock.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Handle {
	t := &task{f: f}
	t.mu.Lock()
	t.timer = time.AfterFunc(d, t.fire)
	t.mu.Unlock()
	return t
}

type task struct {
	mu    sync.Mutex
	done  bool
	f     func()
	timer *time.Timer
}

// fire runs f unless the task was already stopped or fired.
func (t *task) fire() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	f := t.f
	t.mu.Unlock()
	f()
}

func (t *task) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}
