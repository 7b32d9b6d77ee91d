package governance

import (
	"sync"

	"menu-qa/internal/shared"
)

// InFlightGuard allows at most one in-progress answer per client key within
// this process.
type InFlightGuard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{keys: map[string]struct{}{}}
}

func (g *InFlightGuard) Acquire(key string) *shared.RequestError {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.keys[key]; busy {
		return shared.ErrBusy
	}
	g.keys[key] = struct{}{}
	return nil
}

// Release is idempotent.
func (g *InFlightGuard) Release(key string) {
	g.mu.Lock()
	delete(g.keys, key)
	g.mu.Unlock()
}

func (g *InFlightGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}
