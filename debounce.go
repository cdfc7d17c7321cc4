package catalogx

import (
	"sync"
	"time"
)

// DefaultDebounce is the search-input coalescing interval.
const DefaultDebounce = 300 * time.Millisecond

// debouncer coalesces rapid calls into one delayed action. Each schedule
// cancels the previously pending action; cancel stops the pending action
// without running it.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &debouncer{delay: delay}
}

// schedule arms fn to run after the delay, replacing any pending action.
func (d *debouncer) schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// cancel stops the pending action, if any.
func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
