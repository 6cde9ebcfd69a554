package protocol

import (
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a completion wait exceeds its bound. It is a
// distinct outcome from completion, never silently treated as success.
var ErrTimeout = errors.New("wait timed out")

// Latch is the one-shot completion signal carried by Get and Screenshot
// messages. The requester waits on it until the thread that owns the live
// scene has populated the response out-of-band; that thread then signals.
//
// Any number of goroutines may wait. Signal is idempotent, and signaling
// after a waiter has already timed out is safe.
type Latch struct {
	once sync.Once
	done chan struct{}
}

// NewLatch returns a pending latch.
func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Signal completes the latch, releasing all current and future waiters.
func (l *Latch) Signal() {
	l.once.Do(func() { close(l.done) })
}

// Done reports whether the latch has been signaled.
func (l *Latch) Done() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the latch is signaled or the timeout elapses.
// A timeout <= 0 waits forever.
func (l *Latch) Wait(timeout time.Duration) error {
	if timeout <= 0 {
		<-l.done
		return nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.done:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}
