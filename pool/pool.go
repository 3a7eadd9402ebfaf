// Package pool manages a fleet of Runners together: starting them with
// bounded concurrency, waiting for all of them to report running, and
// stopping/joining the whole fleet as one unit so a caller doesn't have to
// hand-roll the same wait group around every multi-runner deployment.
// runnable.PoolRunnable is the single-runnable analogue of what this
// package does across many runners.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/runloop-rt/runloop/runner"
)

// Pool is a named fleet of Runners managed together.
type Pool struct {
	name    string
	sem     *semaphore.Weighted
	mu      sync.Mutex
	runners []runner.Runner
}

// New returns an empty Pool admitting at most maxConcurrentStarts Start
// calls at once.
func New(name string, maxConcurrentStarts int) *Pool {
	if maxConcurrentStarts < 1 {
		maxConcurrentStarts = 1
	}
	return &Pool{
		name: name,
		sem:  semaphore.NewWeighted(int64(maxConcurrentStarts)),
	}
}

// StartAll starts every runner in runners, admitting at most the pool's
// configured concurrency at a time, and waits for each to report running
// before returning. It returns the first error encountered; runners already
// started are left running (callers typically follow a failed StartAll
// with StopAll).
func (p *Pool) StartAll(ctx context.Context, runners []runner.Runner, runningTimeout time.Duration) error {
	var wg sync.WaitGroup
	errs := make([]error, len(runners))

	for i, r := range runners {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(i int, r runner.Runner) {
			defer wg.Done()
			defer p.sem.Release(1)
			if err := r.StartBlocking(ctx, runningTimeout); err != nil {
				errs[i] = fmt.Errorf("pool %s: starting runner %s: %w", p.name, r.Name(), err)
			}
		}(i, r)
	}
	wg.Wait()

	p.mu.Lock()
	p.runners = append(p.runners, runners...)
	p.mu.Unlock()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// StopAll requests every runner in the pool stop, waiting up to timeout per
// runner, and returns the first error encountered (continuing to stop the
// rest regardless).
func (p *Pool) StopAll(timeout time.Duration) error {
	p.mu.Lock()
	runners := append([]runner.Runner(nil), p.runners...)
	p.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, len(runners))
	for i, r := range runners {
		wg.Add(1)
		go func(i int, r runner.Runner) {
			defer wg.Done()
			if err := r.Stop(timeout); err != nil {
				errs[i] = fmt.Errorf("pool %s: stopping runner %s: %w", p.name, r.Name(), err)
			}
		}(i, r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of runners currently tracked by the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.runners)
}

// Runners returns a snapshot of the pool's tracked runners.
func (p *Pool) Runners() []runner.Runner {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]runner.Runner(nil), p.runners...)
}
