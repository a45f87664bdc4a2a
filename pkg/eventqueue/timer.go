package eventqueue

import (
	"sync"
	"time"
)

// debounceTimer is a cancellable, reschedulable one-shot timer. Each
// Reschedule restarts the delay, so a burst of calls results in a single
// firing after the burst quiets down. Stop is idempotent and safe to
// call concurrently with a firing callback.
type debounceTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// Reschedule arranges fn to run after delay, replacing any pending run.
// No-op after Stop.
func (d *debounceTimer) Reschedule(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, fn)
}

// Stop cancels any pending run and rejects future reschedules.
func (d *debounceTimer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
