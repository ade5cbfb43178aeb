package api

import "context"

// pending is a shared, memoized result of a background fetch. Every caller
// holding the same pending sees the same value or error.
type pending[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// start runs fn in the background and returns the pending result
func start[T any](fn func() (T, error)) *pending[T] {
	p := &pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.val, p.err = fn()
	}()
	return p
}

// wait blocks until the result is ready or ctx is done. Cancelling ctx only
// abandons this caller's wait; the fetch keeps running for other callers.
func (p *pending[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ready reports whether the result is available without blocking
func (p *pending[T]) ready() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
