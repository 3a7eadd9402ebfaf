package runner

import (
	"context"
	"fmt"
	"time"

	runloopErrors "github.com/runloop-rt/runloop/errors"
	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/primitives"
	"github.com/runloop-rt/runloop/queue"
	"github.com/runloop-rt/runloop/runnable"
	"github.com/runloop-rt/runloop/status"
	"github.com/runloop-rt/runloop/tracefail"
)

// Runner is the owner-scope handle to a hosted Runnable, whatever scope it
// actually runs in (goroutine or OS process). Both ThreadRunner and
// ProcessRunner implement it identically from the caller's point of view.
type Runner interface {
	Name() string
	Start(ctx context.Context) error
	WaitUntilRunning(timeout time.Duration) error
	StartBlocking(ctx context.Context, timeout time.Duration) error
	Stop(timeout time.Duration) error
	Join(timeout time.Duration) error
	IsAlive() bool
	CheckForExceptions() error
	State() State

	// Close runs the scope-exit termination protocol: Stop, then wait up
	// to DefaultFinalJoinTimeout, raising
	// RunnerStillAliveError if the hosted scope still hasn't terminated -
	// without the caller needing to re-specify DefaultFinalJoinTimeout
	// itself. Intended for `defer r.Close()` right after a successful
	// Start, the idiomatic Go shape of "the runner is a scoped resource."
	Close() error
}

// ThreadRunner hosts a Runnable as a cooperating goroutine.
type ThreadRunner struct {
	name    string
	target  runnable.Runnable
	cancel  context.CancelFunc
	state   *primitives.Atomic[State]
	running primitives.Event
	done    chan struct{}
	failure *primitives.Atomic[error]
}

// NewThreadRunner returns a Runner that hosts target on its own goroutine.
func NewThreadRunner(name string, target runnable.Runnable) *ThreadRunner {
	if name == "" {
		name = defaultName("thread runner", target)
	}
	return &ThreadRunner{
		name:    name,
		target:  target,
		state:   primitives.NewAtomic(Fresh),
		running: primitives.NewThreadEvent(),
		done:    make(chan struct{}),
		failure: primitives.NewAtomic[error](nil),
	}
}

// Commands returns the hosted runnable's own command queue directly, with
// no bridging needed since both run in the same process. ok is false if
// target doesn't expose command/status endpoints (i.e. isn't a
// *runnable.CommandDriven or similar).
func (r *ThreadRunner) Commands() (*queue.Managed[message.Command], bool) {
	h, ok := r.target.(commandHosted)
	if !ok {
		return nil, false
	}
	return h.Commands(), true
}

// Statuses returns the hosted runnable's own status buffer directly.
func (r *ThreadRunner) Statuses() (*queue.Buffer[message.Status], bool) {
	h, ok := r.target.(commandHosted)
	if !ok {
		return nil, false
	}
	return h.Statuses(), true
}

func (r *ThreadRunner) Name() string  { return r.name }
func (r *ThreadRunner) State() State  { return r.state.Get() }
func (r *ThreadRunner) IsAlive() bool { return r.state.Get() == Running || r.state.Get() == Starting }

// Start launches the hosted goroutine. It returns once the goroutine has
// been scheduled, not once it is running; use WaitUntilRunning to block for
// that.
func (r *ThreadRunner) Start(ctx context.Context) error {
	if r.state.Get() != Fresh {
		return runloopErrors.NewProgrammingError("ThreadRunner.Start", "runner %s already started", r.name)
	}
	r.state.Set(Starting)

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	_, statusDone := status.AddItem(ctx, "runner "+r.name, func(context.Context) (any, error) {
		return r.state.Get().String(), nil
	})

	go func() {
		defer close(r.done)
		defer statusDone()
		defer func() {
			if p := recover(); p != nil {
				r.failure.Set(&runloopErrors.RunnableFailure{
					RunnerName: r.name,
					Cause:      tracefail.New(fmt.Errorf("panic: %v", p), 0),
				})
				r.state.Set(Failed)
			}
		}()

		r.state.Set(Running)
		r.running.Set()

		if err := r.target.Execute(runCtx); err != nil && runCtx.Err() == nil {
			// tracefail.New keeps the raise-site capture when the
			// runnable returned a TraceableFailure, and falls back to
			// capturing here, still inside the hosted scope, when it
			// returned a plain error.
			r.failure.Set(&runloopErrors.RunnableFailure{RunnerName: r.name, Cause: tracefail.New(err, 0)})
			r.state.Set(Failed)
			return
		}
		if r.state.Get() != Failed {
			r.state.Set(Stopped)
		}
	}()

	return nil
}

// WaitUntilRunning blocks until the hosted goroutine has entered Execute, or
// timeout elapses.
func (r *ThreadRunner) WaitUntilRunning(timeout time.Duration) error {
	select {
	case <-r.running.Wait():
		return nil
	case <-time.After(timeout):
		return &runloopErrors.TimeoutError{What: fmt.Sprintf("runner %s to start", r.name), Timeout: timeout.String()}
	}
}

// StartBlocking is Start followed by WaitUntilRunning.
func (r *ThreadRunner) StartBlocking(ctx context.Context, timeout time.Duration) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	return r.WaitUntilRunning(timeout)
}

// Stop requests termination (via the Runnable's Stop, then context
// cancellation as a backstop) and waits up to timeout for the runner to
// reach a terminal state.
func (r *ThreadRunner) Stop(timeout time.Duration) error {
	switch r.state.Get() {
	case Fresh:
		r.state.Set(Stopped)
		close(r.done)
		return nil
	case Stopped, Failed:
		// Already terminal - a second Stop() must not regress the state
		// machine back to Stopping.
		return r.CheckForExceptions()
	}
	r.state.Set(Stopping)
	r.target.Stop()

	select {
	case <-r.done:
		return r.CheckForExceptions()
	case <-time.After(timeout):
	}

	// The runnable ignored Stop for the whole grace period: that is the
	// RunnerStillAliveError condition, reported as such even though the
	// context cancellation below usually reclaims the goroutine shortly
	// after.
	if r.cancel != nil {
		r.cancel()
	}
	return &runloopErrors.RunnerStillAliveError{RunnerName: r.name, Waited: timeout.String()}
}

// Join blocks until the runner reaches a terminal state, or timeout elapses.
// Join does not raise on timeout - callers query IsAlive to distinguish
// "still running" from "terminated". The raise-on-timeout behavior lives in
// the termination protocol driven by Stop, not here. A captured failure is
// not returned by Join either; read it with CheckForExceptions.
func (r *ThreadRunner) Join(timeout time.Duration) error {
	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		return nil
	}
}

// CheckForExceptions returns the Runnable's failure, if Execute returned or
// panicked with one. Returns nil while the runner is still running or
// terminated cleanly.
func (r *ThreadRunner) CheckForExceptions() error {
	return r.failure.Get()
}

// Close runs the scope-exit termination protocol: Stop(DefaultFinalJoinTimeout).
func (r *ThreadRunner) Close() error {
	return r.Stop(DefaultFinalJoinTimeout)
}
