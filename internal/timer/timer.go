// Package timer schedules cancellable one-shot callbacks.
//
// A Handle fires its callback at most once. Cancel before the underlying
// timer expires guarantees no callback. When expiry and Cancel race, the
// callback may still run; owners that need "cancel wins" semantics compare
// the delivered Handle against the one they still consider armed, which is
// how the dictation loop uses it.
package timer

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Service creates one-shot timers on an injectable clock.
type Service struct {
	clock clockwork.Clock
	seq   atomic.Uint64
}

// New returns a Service backed by clock, or the real clock when nil.
func New(clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{clock: clock}
}

// Clock exposes the underlying clock for elapsed-time measurements.
func (s *Service) Clock() clockwork.Clock {
	return s.clock
}

// Handle identifies one armed timer.
type Handle struct {
	id        uint64
	timer     clockwork.Timer
	fired     atomic.Bool
	cancelled atomic.Bool
}

// ArmOnce schedules fire to run once after delay. fire receives the handle
// so callers can tell stale deliveries apart.
func (s *Service) ArmOnce(delay time.Duration, fire func(*Handle)) *Handle {
	h := &Handle{id: s.seq.Add(1)}
	h.timer = s.clock.AfterFunc(delay, func() {
		if h.cancelled.Load() {
			return
		}
		if h.fired.CompareAndSwap(false, true) {
			fire(h)
		}
	})
	return h
}

// ID is unique per Service.
func (h *Handle) ID() uint64 {
	if h == nil {
		return 0
	}
	return h.id
}

// Cancel disarms the timer. It reports whether the callback was prevented.
// Cancelling a nil or already-cancelled handle is a no-op.
func (h *Handle) Cancel() bool {
	if h == nil {
		return false
	}
	if !h.cancelled.CompareAndSwap(false, true) {
		return false
	}
	stopped := h.timer.Stop()
	return stopped || !h.fired.Load()
}

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool {
	return h != nil && h.cancelled.Load()
}
