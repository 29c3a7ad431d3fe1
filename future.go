package dispatch

import (
	"context"
	"sync"
)

// Future holds the eventual outcome of a submitted request. Every future
// resolves exactly once: with the value produced by the result stream, a
// parse or backend error scoped to the request, or the transport error which
// tore the dispatcher down.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{
		done: make(chan struct{}),
	}
}

// resolve publishes the outcome of the future. Subsequent calls are ignored.
func (future *Future) resolve(value any, err error) {
	future.once.Do(func() {
		future.value = value
		future.err = err
		close(future.done)
	})
}

// Done returns a channel which is closed once the future has been resolved.
func (future *Future) Done() <-chan struct{} {
	return future.done
}

// Wait blocks until the future has been resolved or the given context is
// cancelled. The outcome of the request is returned once available.
func (future *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-future.done:
		return future.value, future.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
