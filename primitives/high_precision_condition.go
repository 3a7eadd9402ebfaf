package primitives

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// waitPrecision is the native timer/condition-wait granularity on the
// current platform. Windows' native waitable timers round to roughly 16ms;
// on Linux and Darwin Go's runtime timers are already sub-millisecond, so
// HighPrecisionCondition's tail-of-yields degenerates to a single native
// wait there.
var waitPrecision = func() time.Duration {
	if runtime.GOOS == "windows" {
		return 16 * time.Millisecond
	}
	return time.Millisecond
}()

const busyInterval = time.Millisecond

// HighPrecisionCondition offers <=1ms wait granularity on platforms whose
// native condition variable rounds to a coarser interval, by combining one
// long coarse wait with a tail of 1ms cooperative yields up to the deadline.
type HighPrecisionCondition struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewHighPrecisionCondition returns a HighPrecisionCondition.
func NewHighPrecisionCondition() *HighPrecisionCondition {
	c := &HighPrecisionCondition{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Notify wakes any goroutine blocked in WaitFor.
func (c *HighPrecisionCondition) Notify() {
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

// WaitFor blocks until predicate() is true or timeout elapses (returning
// false on timeout), using a monotonic clock to recompute the remaining
// wait on every iteration so spurious wakeups are harmless.
func (c *HighPrecisionCondition) WaitFor(ctx context.Context, timeout time.Duration, predicate func() bool) bool {
	deadline := time.Now().Add(timeout)

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

		coarse := remaining - waitPrecision - 2*busyInterval
		if waitPrecision <= time.Millisecond {
			// The native primitive is already precise enough: one native
			// timed wait, woken early by Notify.
			waitOnCond(c.cond, remaining)
			continue
		}
		if coarse <= 0 {
			// Inside the final precision window: 1ms cooperative-yield tail.
			c.mu.Unlock()
			time.Sleep(minDuration(time.Millisecond, remaining))
			c.mu.Lock()
			continue
		}

		waitOnCond(c.cond, coarse)
	}
	return true
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
