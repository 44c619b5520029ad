package dashboard

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls per key: of several Waits on the same
// key inside the delay window only the last one proceeds.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*debounceCall
}

type debounceCall struct {
	timer      *time.Timer
	fired      chan struct{}
	superseded chan struct{}
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: make(map[string]*debounceCall)}
}

// Wait blocks for the quiet period. It returns true if no newer Wait for
// key arrived meanwhile, and false if it was superseded or ctx ended first.
func (d *Debouncer) Wait(ctx context.Context, key string) bool {
	call := &debounceCall{fired: make(chan struct{}), superseded: make(chan struct{})}

	d.mu.Lock()
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
		close(prev.superseded)
	}
	call.timer = time.AfterFunc(d.delay, func() { close(call.fired) })
	d.pending[key] = call
	d.mu.Unlock()

	select {
	case <-call.fired:
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.pending[key] != call {
			return false
		}
		delete(d.pending, key)
		return true
	case <-call.superseded:
		return false
	case <-ctx.Done():
		d.cancel(key, call)
		return false
	}
}

// cancel drops call if it is still the pending one for key.
func (d *Debouncer) cancel(key string, call *debounceCall) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[key] == call {
		call.timer.Stop()
		delete(d.pending, key)
	}
}

// Pending returns the number of keys with a Wait in progress.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
