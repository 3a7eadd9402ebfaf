package primitives

import (
	"context"
	"sync"
	"time"
)

// Condition is a monotonic-clock, deadline-driven condition variable:
// wakeups are safe to treat as spurious because WaitFor always re-checks
// predicate against the remaining deadline.
type Condition interface {
	// Notify wakes any goroutines blocked in WaitFor.
	Notify()

	// WaitFor blocks until predicate() returns true or timeout elapses,
	// returning false on timeout.
	WaitFor(ctx context.Context, timeout time.Duration, predicate func() bool) bool
}

type threadCondition struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewThreadCondition returns a Condition for use within a single process.
func NewThreadCondition() Condition {
	c := &threadCondition{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *threadCondition) Notify() {
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

func (c *threadCondition) WaitFor(ctx context.Context, timeout time.Duration, predicate func() bool) bool {
	deadline := time.Now().Add(timeout)

	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
			return
		}
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
		close(done)
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	for !predicate() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if ctx.Err() != nil {
			return false
		}
		waitOnCond(c.cond, remaining)
	}
	return true
}

// waitOnCond wakes cond.Wait() after at most d by racing a timer goroutine
// against the broadcast; sync.Cond has no native timed wait.
func waitOnCond(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer timer.Stop()
	cond.Wait()
}
