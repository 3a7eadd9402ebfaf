package runnable

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runloop-rt/runloop/queue"
)

func TestPoolRunnableProcessesQueuedItems(t *testing.T) {
	t.Parallel()

	work := queue.NewIntra[int]("work", 0).Enter()
	defer work.Exit()

	var mu sync.Mutex
	var seen []int
	p := NewPoolRunnable("workers", work, 2, func(ctx context.Context, item int) error {
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Execute(ctx) }()

	require.NoError(t, work.Put(1))
	require.NoError(t, work.Put(2))
	require.NoError(t, work.Put(3))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 10*time.Millisecond)

	p.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after Stop")
	}
	cancel()
}

func TestPoolRunnableReportsWorkerErrors(t *testing.T) {
	t.Parallel()

	work := queue.NewIntra[int]("work", 0).Enter()
	defer work.Exit()

	errs := make(chan error, 1)
	p := NewPoolRunnable("workers", work, 1, func(ctx context.Context, item int) error {
		return assertBoomErr
	})
	p.SetErrorHandler(func(item int, err error) {
		errs <- err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Execute(ctx) }()

	require.NoError(t, work.Put(1))

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("error handler never fired")
	}
	p.Stop()
}

type poolErr string

func (e poolErr) Error() string { return string(e) }

var assertBoomErr = poolErr("boom")
