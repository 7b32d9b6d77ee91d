package governance

import (
	"sync"
	"time"

	"menu-qa/internal/shared"

	"go.uber.org/zap"
)

type Config struct {
	RateWindow time.Duration
	RateCap    int
	Spam       SpamConfig
	CacheTTL   time.Duration
}

// State is the process-wide governance context. It starts empty, is owned by
// the server and can be reset at any time; a reset key behaves as if it had
// never been seen.
type State struct {
	mu       sync.RWMutex
	cfg      Config
	now      Clock
	remote   RemoteCache
	log      *zap.SugaredLogger
	rate     *RateLimiter
	spam     *SpamGuard
	inflight *InFlightGuard
	cache    *ResponseCache
}

func NewState(cfg Config, now Clock, remote RemoteCache, log *zap.SugaredLogger) *State {
	if now == nil {
		now = time.Now
	}
	s := &State{cfg: cfg, now: now, remote: remote, log: log}
	s.Reset()
	return s
}

// Reset drops every map. Requests already holding the in-flight guard keep
// their own reference and release into the old set.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = NewRateLimiter(s.cfg.RateWindow, s.cfg.RateCap, s.now)
	s.spam = NewSpamGuard(s.cfg.Spam, s.now)
	s.inflight = NewInFlightGuard()
	s.cache = NewResponseCache(s.cfg.CacheTTL, s.now, s.remote, s.log)
}

// Admit runs rate limit, spam guard and in-flight checks in order. On success
// the returned release func must be called exactly once; on failure it is nil.
func (s *State) Admit(key string) (func(), *shared.RequestError) {
	s.mu.RLock()
	rate, spam, inflight := s.rate, s.spam, s.inflight
	s.mu.RUnlock()

	if rerr := rate.Check(key); rerr != nil {
		return nil, rerr
	}
	if rerr := spam.Check(key); rerr != nil {
		return nil, rerr
	}
	if rerr := inflight.Acquire(key); rerr != nil {
		return nil, rerr
	}
	var once sync.Once
	return func() { once.Do(func() { inflight.Release(key) }) }, nil
}

// Cache returns the current answer cache.
func (s *State) Cache() *ResponseCache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

// Sweep lazily evicts stale rate, spam and cache entries.
func (s *State) Sweep() {
	s.mu.RLock()
	rate, spam, cache := s.rate, s.spam, s.cache
	s.mu.RUnlock()
	rate.Sweep()
	spam.Sweep()
	cache.Purge()
}

// InFlight returns the number of clients currently being answered.
func (s *State) InFlight() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight.Len()
}
