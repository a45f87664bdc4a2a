package async

import (
	"context"
	"sync"
)

// Group deduplicates concurrent executions of keyed operations. While an
// operation for a key is in flight, additional Do calls for that key
// attach to the existing future instead of starting another execution,
// so every caller observes the same result.
type Group[T any] struct {
	mu       sync.Mutex
	inflight map[string]*Future[T]
	closed   bool
}

// NewGroup creates an empty single-flight group.
func NewGroup[T any]() *Group[T] {
	return &Group[T]{inflight: make(map[string]*Future[T])}
}

// Do returns the future for key, starting fn in a goroutine when no
// execution is in flight. The key is forgotten once fn returns, so a
// later Do starts a fresh execution. After CancelAll, Do returns an
// already-failed future.
func (g *Group[T]) Do(ctx context.Context, key string, fn func(ctx context.Context) (T, error)) *Future[T] {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		f := NewFuture[T]()
		var zero T
		f.complete(zero, ErrCanceled)
		return f
	}
	if existing, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		return existing
	}

	f := NewFuture[T]()
	g.inflight[key] = f
	g.mu.Unlock()

	go func() {
		result, err := fn(ctx)

		g.mu.Lock()
		if g.inflight[key] == f {
			delete(g.inflight, key)
		}
		g.mu.Unlock()

		f.complete(result, err)
	}()
	return f
}

// InFlight reports whether an execution for key is currently running.
func (g *Group[T]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[key]
	return ok
}

// CancelAll fails every pending future with ErrCanceled and rejects
// future Do calls. Running functions are not interrupted, but their
// late results are discarded by the future's once-only completion.
func (g *Group[T]) CancelAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
	var zero T
	for key, f := range g.inflight {
		f.complete(zero, ErrCanceled)
		delete(g.inflight, key)
	}
}
