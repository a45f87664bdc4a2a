package async

import (
	"sync"
	"time"
)

// Future is the eventual result of a background computation. It
// completes exactly once; later completions are ignored.
type Future[T any] struct {
	once   sync.Once
	done   chan struct{}
	result T
	err    error
}

// NewFuture creates an incomplete future that will be completed
// externally via complete.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Run starts fn in a goroutine and returns a future for its result.
func Run[T any](fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		f.complete(fn())
	}()
	return f
}

// Await blocks until the future completes and returns its result.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout waits up to timeout for completion, returning
// ErrTimeout when the deadline elapses first.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero T
		return zero, ErrTimeout
	}
}

// Done returns a channel closed when the future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Complete reports whether the future has finished without blocking.
func (f *Future[T]) Complete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[T]) complete(result T, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}
