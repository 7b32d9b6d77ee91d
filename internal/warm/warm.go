// Package warm memoizes expensive, process-lifetime values (the corpus index,
// intent prototypes). Concurrent first callers share one computation; later
// callers get the stored value without waiting.
package warm

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

type BuildFunc[T any] func(ctx context.Context) (T, error)

// Value holds at most one computed T. Failed builds are not stored, so the
// next caller retries.
type Value[T any] struct {
	name   string
	build  BuildFunc[T]
	flight singleflight.Group

	mu    sync.RWMutex
	val   T
	ready bool
	// gen is bumped by Reset so a build started before the reset does not
	// store a stale value.
	gen uint64
}

func New[T any](name string, build BuildFunc[T]) *Value[T] {
	return &Value[T]{name: name, build: build}
}

func (v *Value[T]) load() (T, bool, uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val, v.ready, v.gen
}

// Get returns the stored value or joins/starts the build. The build runs
// detached from ctx cancellation so one caller leaving does not fail the
// others; a canceled caller stops waiting and gets ctx.Err().
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	if val, ok, _ := v.load(); ok {
		return val, nil
	}

	ch := v.flight.DoChan(v.name, func() (any, error) {
		val, ok, gen := v.load()
		if ok {
			return val, nil
		}
		built, err := v.build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		if v.gen == gen {
			v.val = built
			v.ready = true
		}
		v.mu.Unlock()
		return built, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (v *Value[T]) Ready() bool {
	_, ok, _ := v.load()
	return ok
}

// Reset forgets the stored value. The next Get starts a new build instead of
// joining one that began before the reset.
func (v *Value[T]) Reset() {
	v.mu.Lock()
	var zero T
	v.val = zero
	v.ready = false
	v.gen++
	v.flight.Forget(v.name)
	v.mu.Unlock()
}
