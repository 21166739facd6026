package rmask

import (
	"sync"
	"time"
)

// DefaultSyncDelay is how long the editor waits after the last mutation
// before persisting.
const DefaultSyncDelay = 300 * time.Millisecond

// debouncer coalesces a burst of Trigger calls into one call of fn, run on
// its own goroutine delay after the last Trigger.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

// Trigger restarts the countdown.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timer != t {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fn()
	})
	d.timer = t
}

// Flush runs a pending call now, on the caller's goroutine. It reports
// whether a call was pending.
func (d *debouncer) Flush() bool {
	if !d.Stop() {
		return false
	}
	d.fn()
	return true
}

// Stop cancels a pending call and reports whether one was pending.
func (d *debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}
