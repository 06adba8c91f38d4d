// Package debounce coalesces bursts of values into a single delivery after
// a quiet period.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period used when none is configured.
const DefaultWindow = 400 * time.Millisecond

// Debouncer delivers the latest pushed value once no new value has arrived
// for the configured window. Earlier values of a burst are discarded.
type Debouncer[T any] struct {
	window  time.Duration
	deliver func(T)

	mu      sync.Mutex
	timer   *time.Timer
	latest  T
	pending bool
	gen     uint64
	stopped bool
}

// New creates a debouncer calling deliver on its own goroutine.
func New[T any](window time.Duration, deliver func(T)) *Debouncer[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer[T]{window: window, deliver: deliver}
}

// Push records v as the latest value and restarts the window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.latest = v
	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A timer that lost the race with Push, Flush or Stop must not deliver.
	if gen != d.gen || !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	v := d.latest
	d.pending = false
	d.mu.Unlock()
	d.deliver(v)
}

// Flush delivers the pending value immediately on the calling goroutine.
// It reports whether a value was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	v := d.latest
	d.pending = false
	d.mu.Unlock()
	d.deliver(v)
	return true
}

// Pending reports whether a value is waiting for delivery.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel drops the pending value without stopping the debouncer.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Stop drops any pending value. Later pushes are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
}
