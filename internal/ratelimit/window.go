// Package ratelimit provides the advisory send limiter used before a message
// is submitted. It is a UX guard only: nothing stops a client from bypassing
// it, so the gateway must enforce its own limits.
package ratelimit

import (
	"sync"
	"time"
)

// Default send policy: 5 sends per 5 seconds.
const (
	DefaultLimit  = 5
	DefaultWindow = 5 * time.Second
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// SlidingWindow counts events in the trailing window. An event is allowed when
// fewer than limit events happened in the last window.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	events []time.Time // ascending
	now    func() time.Time
}

// NewSlidingWindow creates a limiter allowing limit events per window
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// WithClock replaces the time source; used by tests
func (w *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	w.mu.Lock()
	w.now = now
	w.mu.Unlock()
	return w
}

// Allow records an event if the window has room and reports the decision.
// Refused events are not recorded.
func (w *SlidingWindow) Allow() Decision {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)

	if len(w.events) >= w.limit {
		retry := w.events[0].Add(w.window).Sub(now)
		if retry <= 0 {
			retry = time.Millisecond
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}
	}

	w.events = append(w.events, now)
	return Decision{Allowed: true, Remaining: w.limit - len(w.events)}
}

// Remaining returns how many events the window currently has room for
func (w *SlidingWindow) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(w.now())
	return w.limit - len(w.events)
}

// Reset forgets all recorded events
func (w *SlidingWindow) Reset() {
	w.mu.Lock()
	w.events = nil
	w.mu.Unlock()
}

func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.events) && !w.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0], w.events[i:]...)
	}
}
