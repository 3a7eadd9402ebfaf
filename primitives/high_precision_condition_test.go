package primitives

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHighPrecisionConditionWaitForTimesOut(t *testing.T) {
	t.Parallel()

	c := NewHighPrecisionCondition()
	start := time.Now()
	ok := c.WaitFor(context.Background(), 10*time.Millisecond, func() bool { return false })
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestHighPrecisionConditionWakesOnNotify(t *testing.T) {
	t.Parallel()

	c := NewHighPrecisionCondition()
	ready := NewAtomic(false)

	go func() {
		time.Sleep(5 * time.Millisecond)
		ready.Set(true)
		c.Notify()
	}()

	ok := c.WaitFor(context.Background(), time.Second, func() bool {
		return ready.Get()
	})
	assert.True(t, ok)
}

func TestHighPrecisionConditionZeroTimeoutReturnsImmediately(t *testing.T) {
	t.Parallel()

	c := NewHighPrecisionCondition()
	start := time.Now()
	ok := c.WaitFor(context.Background(), 0, func() bool { return false })
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Millisecond)
}
