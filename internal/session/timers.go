package session

import (
	"strings"
	"sync"
	"time"
)

// Clock is the time source behind Timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock {
	return systemClock{}
}

type task struct {
	gen   uint64
	timer Timer
}

// Timers holds cancellable scheduled tasks keyed by "<session>/<name>".
// Scheduling under a key replaces whatever was pending there, and a task
// that was cancelled or replaced never runs, even if its timer already fired.
type Timers struct {
	clock Clock

	mu      sync.Mutex
	gen     uint64
	pending map[string]task
}

// NewTimers returns an empty task set driven by clock.
func NewTimers(clock Clock) *Timers {
	return &Timers{clock: clock, pending: map[string]task{}}
}

// TimerKey builds the key for a named task of a session.
func TimerKey(session, name string) string {
	return session + "/" + name
}

// Now reads the underlying clock.
func (t *Timers) Now() time.Time {
	return t.clock.Now()
}

// After runs f once after d unless cancelled first.
func (t *Timers) After(key string, d time.Duration, f func()) {
	t.schedule(key, d, f, false)
}

// Every runs f every d until cancelled.
func (t *Timers) Every(key string, d time.Duration, f func()) {
	t.schedule(key, d, f, true)
}

func (t *Timers) schedule(key string, d time.Duration, f func(), repeat bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked(key)
	t.gen++
	gen := t.gen

	var fire func()
	fire = func() {
		t.mu.Lock()
		current, ok := t.pending[key]
		if !ok || current.gen != gen {
			t.mu.Unlock()
			return
		}
		if repeat {
			current.timer = t.clock.AfterFunc(d, fire)
			t.pending[key] = current
		} else {
			delete(t.pending, key)
		}
		t.mu.Unlock()
		f()
	}
	t.pending[key] = task{gen: gen, timer: t.clock.AfterFunc(d, fire)}
}

// Cancel stops the task under key. It reports whether one was pending.
func (t *Timers) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked(key)
}

// CancelSession stops every task of a session.
func (t *Timers) CancelSession(session string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := session + "/"
	n := 0
	for key := range t.pending {
		if strings.HasPrefix(key, prefix) && t.stopLocked(key) {
			n++
		}
	}
	return n
}

// Pending reports whether a task is scheduled under key.
func (t *Timers) Pending(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[key]
	return ok
}

func (t *Timers) stopLocked(key string) bool {
	current, ok := t.pending[key]
	if !ok {
		return false
	}
	current.timer.Stop()
	delete(t.pending, key)
	return true
}
