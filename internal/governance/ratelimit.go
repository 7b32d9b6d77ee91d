package governance

import (
	"sync"
	"time"

	"menu-qa/internal/shared"
)

type rateState struct {
	windowStart time.Time
	count       int
	resetAt     time.Time
}

// RateLimiter caps the number of requests a client can make per window.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateState
	window  time.Duration
	cap     int
	now     Clock
}

func NewRateLimiter(window time.Duration, limit int, now Clock) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		clients: map[string]*rateState{},
		window:  window,
		cap:     limit,
		now:     now,
	}
}

// Check counts the call against key's window. The over-limit call is counted
// too, so hammering a limited client never shortens its wait.
func (rl *RateLimiter) Check(key string) *shared.RequestError {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	st, ok := rl.clients[key]
	if !ok || now.Sub(st.windowStart) > rl.window {
		st = &rateState{windowStart: now, resetAt: now.Add(rl.window)}
		rl.clients[key] = st
	}
	st.count++

	if st.count > rl.cap {
		return shared.NewThrottleError(shared.CodeRateLimit, st.resetAt.Sub(now))
	}
	return nil
}

// Sweep drops clients whose window has elapsed.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, st := range rl.clients {
		if now.Sub(st.windowStart) > rl.window {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
