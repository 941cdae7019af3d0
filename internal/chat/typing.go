package chat

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type typingSignaler interface {
	TypingStart(conversationID string) error
	TypingStop(conversationID string) error
}

type typingState struct {
	limiter *rate.Limiter
	active  bool
}

// typingThrottle sends at most one typing_start per interval per
// conversation and a typing_stop only after a start.
type typingThrottle struct {
	mu       sync.Mutex
	out      typingSignaler
	interval time.Duration
	convs    map[string]*typingState
}

func newTypingThrottle(out typingSignaler, interval time.Duration) *typingThrottle {
	return &typingThrottle{
		out:      out,
		interval: interval,
		convs:    make(map[string]*typingState),
	}
}

// signal reports whether a frame was sent
func (t *typingThrottle) signal(conversationID string, typing bool) (bool, error) {
	t.mu.Lock()
	st, ok := t.convs[conversationID]
	if !ok {
		st = &typingState{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
		t.convs[conversationID] = st
	}

	if typing {
		if !st.limiter.Allow() {
			t.mu.Unlock()
			return false, nil
		}
		st.active = true
		t.mu.Unlock()
		return true, t.out.TypingStart(conversationID)
	}

	if !st.active {
		t.mu.Unlock()
		return false, nil
	}
	st.active = false
	// the next keystroke starts a fresh burst
	st.limiter = rate.NewLimiter(rate.Every(t.interval), 1)
	t.mu.Unlock()
	return true, t.out.TypingStop(conversationID)
}

func (t *typingThrottle) forget(conversationID string) {
	t.mu.Lock()
	delete(t.convs, conversationID)
	t.mu.Unlock()
}

func (t *typingThrottle) reset() {
	t.mu.Lock()
	t.convs = make(map[string]*typingState)
	t.mu.Unlock()
}
