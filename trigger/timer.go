package trigger

import (
	"sync"
	"time"
)

// Timer is a cancellable one-shot timer. Schedule always cancels any
// previous schedule first, so at most one callback is ever pending.
type Timer struct {
	mu sync.Mutex
	t  *time.Timer
}

// Schedule arranges for fn to run after delay, replacing any pending
// schedule. fn runs on its own goroutine.
func (d *Timer) Schedule(fn func(), delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
	}
	d.t = time.AfterFunc(delay, fn)
}

// Cancel stops the pending callback, if any. It reports whether a pending
// schedule was actually cancelled before firing.
func (d *Timer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t == nil {
		return false
	}
	stopped := d.t.Stop()
	d.t = nil
	return stopped
}
