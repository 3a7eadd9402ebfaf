package runnable

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/runloop-rt/runloop/queue"
)

// pollInterval bounds how long PoolRunnable blocks on an empty work queue
// before re-checking for a stop request.
const pollInterval = 200 * time.Millisecond

// PoolRunnable hosts a bounded pool of workers pulling items off a single
// Managed queue and running a user-supplied worker function against each,
// at most concurrency items in flight at a time, bounded by a
// semaphore.Weighted.
type PoolRunnable[T any] struct {
	Base

	work    *queue.Managed[T]
	worker  func(ctx context.Context, item T) error
	onError func(item T, err error)

	sem  *semaphore.Weighted
	size int64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewPoolRunnable returns a PoolRunnable draining work with up to
// concurrency workers active at once.
func NewPoolRunnable[T any](name string, work *queue.Managed[T], concurrency int, worker func(ctx context.Context, item T) error) *PoolRunnable[T] {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PoolRunnable[T]{
		Base:   NewBase(name),
		work:   work,
		worker: worker,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		size:   int64(concurrency),
		stopCh: make(chan struct{}),
	}
}

// SetErrorHandler installs a hook invoked (off the Execute goroutine) when a
// worker invocation returns an error. Defaults to discarding the error.
func (p *PoolRunnable[T]) SetErrorHandler(f func(item T, err error)) {
	p.onError = f
}

// Execute pulls items until Stop is called, then waits for every
// in-flight worker to finish before returning.
func (p *PoolRunnable[T]) Execute(ctx context.Context) error {
	defer p.wg.Wait()

	for {
		select {
		case <-p.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item, ok := p.work.Get(pollInterval)
		if !ok {
			continue
		}

		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}

		p.wg.Add(1)
		go func(item T) {
			defer p.wg.Done()
			defer p.sem.Release(1)
			if err := p.worker(ctx, item); err != nil && p.onError != nil {
				p.onError(item, err)
			}
		}(item)
	}
}

// Stop requests that Execute drain in-flight workers and return. Outstanding
// queued items are left undrained; the queue's own Exit handles discard.
func (p *PoolRunnable[T]) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}
