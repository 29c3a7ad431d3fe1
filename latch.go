package dispatch

import (
	"sync"
)

// errorLatch is a write-once cell holding the first fatal transport error.
// Once set the value remains stable and the Done channel is closed, fanning
// the failure out to every stage and every blocked caller.
type errorLatch struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newErrorLatch() *errorLatch {
	return &errorLatch{
		done: make(chan struct{}),
	}
}

// Set latches the given error. Only the first call has any effect.
func (latch *errorLatch) Set(err error) {
	latch.once.Do(func() {
		latch.err = err
		close(latch.done)
	})
}

// Done returns a channel which is closed once an error has been latched.
func (latch *errorLatch) Done() <-chan struct{} {
	return latch.done
}

// Err returns the latched error, or nil when no error has been latched yet.
func (latch *errorLatch) Err() error {
	select {
	case <-latch.done:
		return latch.err
	default:
		return nil
	}
}
