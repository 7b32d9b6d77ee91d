package governance

import (
	"sync"
	"time"

	"menu-qa/internal/shared"
)

type spamState struct {
	windowStart   time.Time
	count         int
	blockedUntil  time.Time
	lastRequestAt time.Time
}

type SpamConfig struct {
	MinInterval  time.Duration
	TooFastBlock time.Duration
	Window       time.Duration
	Cap          int
	Block        time.Duration
}

// SpamGuard layers three checks per client: an active cooldown, a minimum
// spacing between requests and a longer window count. Tripping either of the
// last two starts a cooldown.
type SpamGuard struct {
	mu      sync.Mutex
	clients map[string]*spamState
	cfg     SpamConfig
	now     Clock
}

func NewSpamGuard(cfg SpamConfig, now Clock) *SpamGuard {
	if now == nil {
		now = time.Now
	}
	return &SpamGuard{
		clients: map[string]*spamState{},
		cfg:     cfg,
		now:     now,
	}
}

func (g *SpamGuard) Check(key string) *shared.RequestError {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	st, ok := g.clients[key]
	if !ok {
		st = &spamState{windowStart: now}
		g.clients[key] = st
	}

	// An active cooldown is read-only: it neither extends itself nor counts.
	if now.Before(st.blockedUntil) {
		return shared.NewThrottleError(shared.CodeCooldown, st.blockedUntil.Sub(now))
	}

	if !st.lastRequestAt.IsZero() && now.Sub(st.lastRequestAt) < g.cfg.MinInterval {
		st.blockedUntil = now.Add(g.cfg.TooFastBlock)
		return shared.NewThrottleError(shared.CodeTooFast, g.cfg.TooFastBlock)
	}

	if now.Sub(st.windowStart) > g.cfg.Window {
		st.windowStart = now
		st.count = 0
	}
	st.count++
	if st.count > g.cfg.Cap {
		st.blockedUntil = now.Add(g.cfg.Block)
		return shared.NewThrottleError(shared.CodeSpamWindow, g.cfg.Block)
	}

	st.lastRequestAt = now
	return nil
}

// Sweep drops clients with an expired window and no active block.
func (g *SpamGuard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	removed := 0
	for key, st := range g.clients {
		if now.Sub(st.windowStart) > g.cfg.Window && !now.Before(st.blockedUntil) {
			delete(g.clients, key)
			removed++
		}
	}
	return removed
}

func (g *SpamGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}
