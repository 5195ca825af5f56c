// Package debounce provides a key-scoped debouncer: repeated calls for the
// same key within the quiescence window collapse into a single execution of
// the most recently supplied function.
//
// Each key owns its own timer, so pending work for one key is never cancelled
// by activity on another.
package debounce

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*clock.Timer
	stopped bool
}

func New(clk clock.Clock, delay time.Duration) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	return &Debouncer{
		clock:   clk,
		delay:   delay,
		pending: make(map[string]*clock.Timer),
	}
}

// Call arms (or re-arms) the timer for key. fn runs on a timer goroutine once
// the quiescence window elapses with no further Call for the same key. A call
// that arrives while a superseded timer is mid-fire wins: the superseded fn
// does not run.
func (d *Debouncer) Call(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if prev, ok := d.pending[key]; ok {
		prev.Stop()
	}

	var timer *clock.Timer
	timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.stopped || d.pending[key] != timer {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()

		fn()
	})
	d.pending[key] = timer
}

// Cancel discards any pending execution for key. It reports whether one was
// pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	timer, ok := d.pending[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(d.pending, key)
	return true
}

// Len reports the number of keys with a pending execution.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels all pending executions. The debouncer accepts no further calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, timer := range d.pending {
		timer.Stop()
		delete(d.pending, key)
	}
}
