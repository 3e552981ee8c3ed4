// Package syncx provides extended synchronization primitives
package syncx

import (
	"sync"
	"sync/atomic"
)

// Guard publishes an immutable value. Readers take lock-free snapshots;
// writers serialise through a single critical section and publish
// the replacement with one pointer swap, so readers never see a partial write.
type Guard[T any] struct {
	mu    sync.Mutex
	value atomic.Pointer[T]
}

// NewGuard creates a guarded value.
func NewGuard[T any](initial T) *Guard[T] {
	g := &Guard[T]{}
	g.value.Store(&initial)
	return g
}

// Load returns the currently published value.
func (g *Guard[T]) Load() T {
	return *g.value.Load()
}

// Store replaces the value.
func (g *Guard[T]) Store(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value.Store(&v)
}

// Swap replaces and returns the old value.
func (g *Guard[T]) Swap(v T) T {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.value.Swap(&v)
}

// Update runs fn with exclusive write access. fn receives the current value
// and returns its replacement; if fn fails nothing is published.
func (g *Guard[T]) Update(fn func(T) (T, error)) (T, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur := *g.value.Load()
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	g.value.Store(&next)
	return next, nil
}
