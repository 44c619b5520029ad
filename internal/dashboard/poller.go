package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stocktracker/internal/logger"
)

// Poller schedules periodic refreshes on a shared cron runner.
type Poller struct {
	cron    *cron.Cron
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewPoller creates a Poller. timeout bounds each tick's work.
func NewPoller(timeout time.Duration) *Poller {
	return &Poller{
		cron:    cron.New(),
		timeout: timeout,
		log:     logger.Named("poller"),
	}
}

// Start starts the cron runner.
func (p *Poller) Start() {
	p.cron.Start()
}

// Stop stops scheduling new ticks and returns a context that is done once
// running ticks have returned.
func (p *Poller) Stop() context.Context {
	return p.cron.Stop()
}

// PollHandle owns one scheduled refresh. The value produced by the latest
// successful tick replaces the previous one wholesale.
type PollHandle[T any] struct {
	poller  *Poller
	entryID cron.EntryID
	build   func(ctx context.Context) (T, error)
	publish func(T)

	generation atomic.Uint64
	stopped    atomic.Bool
	running    atomic.Bool

	mu        sync.Mutex
	latest    T
	hasLatest bool
}

// Watch schedules build every interval and hands each result to publish.
// The first tick runs immediately. publish is called with the handle's lock
// held and must not block; it is never called after Stop returns.
func Watch[T any](p *Poller, interval time.Duration, build func(ctx context.Context) (T, error), publish func(T)) *PollHandle[T] {
	h := &PollHandle[T]{poller: p, build: build, publish: publish}
	h.entryID = p.cron.Schedule(cron.Every(interval), cron.FuncJob(h.Tick))
	go h.Tick()
	return h
}

// Tick runs one refresh. Overlapping ticks are skipped. The result is
// dropped if the handle was stopped while the refresh was in flight.
func (h *PollHandle[T]) Tick() {
	if h.stopped.Load() {
		return
	}
	if !h.running.CompareAndSwap(false, true) {
		return
	}
	defer h.running.Store(false)

	gen := h.generation.Load()

	// In-flight work outlives Stop; its result is discarded below.
	ctx, cancel := context.WithTimeout(context.Background(), h.poller.timeout)
	defer cancel()

	value, err := h.build(ctx)
	if err != nil {
		h.poller.log.Warnw("poll tick failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.generation.Load() != gen {
		return
	}
	h.latest = value
	h.hasLatest = true
	if h.publish != nil {
		h.publish(value)
	}
}

// Latest returns the most recently published value.
func (h *PollHandle[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasLatest
}

// Stop cancels the schedule. Results of ticks still in flight are ignored.
// Stop is idempotent.
func (h *PollHandle[T]) Stop() {
	if !h.stopped.CompareAndSwap(false, true) {
		return
	}
	h.mu.Lock()
	h.generation.Add(1)
	h.mu.Unlock()
	h.poller.cron.Remove(h.entryID)
}

// Stopped reports whether Stop has been called.
func (h *PollHandle[T]) Stopped() bool {
	return h.stopped.Load()
}
