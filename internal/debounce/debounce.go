// Package debounce collapses rapid repeated triggers into a single callback
// invocation after a quiet period. Quantity inputs and the cart note use it
// so a burst of edits produces one network call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer wraps a callback with a quiet-period timer. Each Trigger cancels
// any pending invocation and schedules a new one; only the last trigger
// within the window fires. Safe for concurrent use.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

// New creates a Debouncer that invokes fn delay after the last Trigger.
func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules the callback, cancelling any pending invocation first.
// The previous timer is always stopped before a new one is created, so
// unlimited repeated triggers never leak timers.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending invocation and prevents further triggers.
// Idempotent; safe to call during teardown.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Func returns a debounced wrapper around fn plus a stop function, for
// callers that want the callback shape rather than the struct.
func Func(delay time.Duration, fn func()) (trigger func(), stop func()) {
	d := New(delay, fn)
	return d.Trigger, d.Stop
}
