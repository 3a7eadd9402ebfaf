package runner

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	runloopErrors "github.com/runloop-rt/runloop/errors"
	"github.com/runloop-rt/runloop/logging"
	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/primitives"
	"github.com/runloop-rt/runloop/queue"
	"github.com/runloop-rt/runloop/status"
	"github.com/runloop-rt/runloop/tracefail"
)

// ProcessRunner hosts a Runnable in a self-reexecuted child OS process,
// bridging its command queue and status buffer across two Unix domain
// sockets so everything built against a Runner's Commands()/Statuses()
// endpoints - remote.Proxy chief among them - works unmodified regardless
// of which scope actually hosts the target. The parent listens on both
// sockets before spawning; the child dials back once it's up, so no second
// binary is needed.
type ProcessRunner struct {
	name        string
	factoryName string

	cmd *exec.Cmd

	cmdListener    net.Listener
	statusListener net.Listener

	cmdQueue  *queue.Managed[message.Command]
	statusBuf *queue.Buffer[message.Status]

	state   *primitives.Atomic[State]
	running primitives.Event
	done    chan struct{}
	failure *primitives.Atomic[error]

	// statusPumpDone closes once the status-forwarding goroutine in Start
	// has drained the child's control connection to EOF, so wait can be
	// sure any KindRunnableFailed status the child sent ahead of exiting
	// has already been captured into failure before it falls back to the
	// OS exit error.
	statusPumpDone chan struct{}

	statusDone func()

	stopOnce sync.Once
}

// NewProcessRunner returns a Runner that hosts the Runnable registered
// under factoryName in a separate OS process launched by reexecuting the
// current binary.
func NewProcessRunner(name, factoryName string) *ProcessRunner {
	if name == "" {
		name = fmt.Sprintf("process runner of %s", factoryName)
	}
	return &ProcessRunner{
		name:        name,
		factoryName: factoryName,
		state:       primitives.NewAtomic(Fresh),
		running:     primitives.NewThreadEvent(),
		done:        make(chan struct{}),
		failure:     primitives.NewAtomic[error](nil),
	}
}

func (r *ProcessRunner) Name() string  { return r.name }
func (r *ProcessRunner) State() State  { return r.state.Get() }
func (r *ProcessRunner) IsAlive() bool { return r.state.Get() == Running || r.state.Get() == Starting }

// Commands returns the owner-side command queue; puts here are delivered to
// the child's hosted CommandDriven.Commands() over the wire.
func (r *ProcessRunner) Commands() *queue.Managed[message.Command] { return r.cmdQueue }

// Statuses returns the owner-side status buffer, fed by a background pump
// reading the child's status socket.
func (r *ProcessRunner) Statuses() *queue.Buffer[message.Status] { return r.statusBuf }

// Start spawns the child process and its control sockets. It returns once
// both sockets have accepted a connection from the child.
func (r *ProcessRunner) Start(ctx context.Context) error {
	if r.state.Get() != Fresh {
		return runloopErrors.NewProgrammingError("ProcessRunner.Start", "runner %s already started", r.name)
	}
	r.state.Set(Starting)

	dir, err := os.MkdirTemp("", "runloop-"+sanitizeFilename(r.name)+"-")
	if err != nil {
		r.state.Set(Failed)
		return err
	}
	cmdSockPath := filepath.Join(dir, "cmd.sock")
	statusSockPath := filepath.Join(dir, "status.sock")

	r.cmdListener, err = net.Listen("unix", cmdSockPath)
	if err != nil {
		r.state.Set(Failed)
		return err
	}
	r.statusListener, err = net.Listen("unix", statusSockPath)
	if err != nil {
		r.state.Set(Failed)
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		r.state.Set(Failed)
		return err
	}
	r.cmd = exec.CommandContext(ctx, exe, os.Args[1:]...)
	env := append(os.Environ(),
		childFactoryEnv+"="+r.factoryName,
		childCmdSockEnv+"="+cmdSockPath,
		childStatusSockEnv+"="+statusSockPath,
	)

	// First out-of-process activation launches the single log listener
	// scope; every child gets the listener's socket plus a snapshot of the
	// owner's configuration history to replay. Relay failures are printed
	// and swallowed - the child then just logs locally.
	if relay, relayErr := ensureLogRelay(); relayErr != nil {
		fmt.Fprintf(os.Stderr, "runner: starting log relay: %v\n", relayErr)
	} else {
		historyPath := filepath.Join(dir, "history.gob")
		if histErr := logging.EncodeHistoryFile(logging.CurrentHistory(), historyPath); histErr != nil {
			fmt.Fprintf(os.Stderr, "runner: writing log history: %v\n", histErr)
		} else {
			env = append(env,
				childLogSockEnv+"="+relay.sockPath,
				childLogHistoryEnv+"="+historyPath,
			)
		}
	}
	r.cmd.Env = env
	r.cmd.Stdout = os.Stdout
	r.cmd.Stderr = os.Stderr

	if err := r.cmd.Start(); err != nil {
		r.state.Set(Failed)
		return err
	}

	cmdConn, err := r.cmdListener.Accept()
	if err != nil {
		r.state.Set(Failed)
		return err
	}
	statusConn, err := r.statusListener.Accept()
	if err != nil {
		r.state.Set(Failed)
		return err
	}

	r.cmdQueue = queue.NewCrossFromConn[message.Command](r.name+":commands", cmdConn, 64).Enter()
	r.statusBuf = queue.New[message.Status](r.name + ":statuses")

	crossStatuses := queue.NewCrossFromConn[message.Status](r.name+":statuses:cross", statusConn, 64).Enter()
	r.statusPumpDone = make(chan struct{})
	pub := r.statusBuf.Publish()
	go func() {
		defer pub.Close()
		defer close(r.statusPumpDone)
		for {
			status, ok := crossStatuses.Get(-1)
			if !ok {
				return
			}
			if status.Kind == message.KindRunnableFailed {
				r.captureChildFailure(status.Err)
				continue
			}
			_ = pub.PublishValue(status)
		}
	}()

	_, r.statusDone = status.AddItem(ctx, "runner "+r.name, func(context.Context) (any, error) {
		return r.state.Get().String(), nil
	})

	r.state.Set(Running)
	r.running.Set()

	go r.wait()

	return nil
}

// captureChildFailure reconstructs a TraceableFailure from the wire Failure
// a child process sent ahead of its exit and records it as this runner's
// captured failure, the same way remote.Proxy.roundTrip reconstitutes a
// RemoteResult failure from its wire form.
func (r *ProcessRunner) captureChildFailure(f *message.Failure) {
	if f == nil {
		return
	}
	cause := tracefail.New(fmt.Errorf("%s", f.Message), 0)
	cause.OriginTraceback = f.RenderedTraceback
	r.failure.Set(&runloopErrors.RunnableFailure{RunnerName: r.name, Cause: cause})
}

func (r *ProcessRunner) wait() {
	defer close(r.done)
	defer r.statusDone()
	err := r.cmd.Wait()

	// Give the status-pump goroutine a chance to drain any
	// KindRunnableFailed message the child sent over its control
	// connection ahead of exiting, so a captured failure with a real
	// message and traceback isn't clobbered below by the OS's generic
	// "exit status 1".
	if r.statusPumpDone != nil {
		select {
		case <-r.statusPumpDone:
		case <-time.After(2 * time.Second):
		}
	}

	if r.failure.Get() != nil {
		r.state.Set(Failed)
		return
	}
	if err != nil && r.state.Get() != Stopping {
		r.failure.Set(&runloopErrors.RunnableFailure{RunnerName: r.name, Cause: err})
		r.state.Set(Failed)
		return
	}
	if r.state.Get() != Failed {
		r.state.Set(Stopped)
	}
}

// WaitUntilRunning blocks until the child process has been accepted on both
// control sockets, or timeout elapses.
func (r *ProcessRunner) WaitUntilRunning(timeout time.Duration) error {
	select {
	case <-r.running.Wait():
		return nil
	case <-time.After(timeout):
		return &runloopErrors.TimeoutError{What: fmt.Sprintf("runner %s to start", r.name), Timeout: timeout.String()}
	}
}

// StartBlocking is Start followed by WaitUntilRunning.
func (r *ProcessRunner) StartBlocking(ctx context.Context, timeout time.Duration) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	return r.WaitUntilRunning(timeout)
}

// Stop sends a Stop command over the control socket and waits up to timeout
// for the child process to exit, killing it as a last resort.
func (r *ProcessRunner) Stop(timeout time.Duration) error {
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

	var stopErr error
	r.stopOnce.Do(func() {
		r.state.Set(Stopping)
		if r.cmdQueue != nil {
			_ = r.cmdQueue.Put(message.Stop())
		}

		select {
		case <-r.done:
		case <-time.After(timeout):
			// The child ignored Stop for the whole grace period: report
			// RunnerStillAliveError, then kill it outright so the OS
			// process doesn't outlive its owner.
			stopErr = &runloopErrors.RunnerStillAliveError{RunnerName: r.name, Waited: timeout.String()}
			if r.cmd != nil && r.cmd.Process != nil {
				_ = r.cmd.Process.Kill()
			}
			select {
			case <-r.done:
			case <-time.After(5 * time.Second):
			}
		}

		if r.cmdQueue != nil {
			r.cmdQueue.Exit()
		}
		if r.cmdListener != nil {
			_ = r.cmdListener.Close()
		}
		if r.statusListener != nil {
			_ = r.statusListener.Close()
		}
	})
	if stopErr != nil {
		return stopErr
	}
	return r.CheckForExceptions()
}

// Join blocks until the child process exits, or timeout elapses. Join does
// not raise on timeout - callers query IsAlive to distinguish "still
// running" from "terminated". The raise-on-timeout behavior lives in the
// termination protocol driven by Stop, not here. A captured failure is not
// returned by Join either; read it with CheckForExceptions.
func (r *ProcessRunner) Join(timeout time.Duration) error {
	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		return nil
	}
}

// CheckForExceptions returns the child process's failure, if it exited
// non-zero or couldn't be waited on.
func (r *ProcessRunner) CheckForExceptions() error {
	return r.failure.Get()
}

// Close runs the scope-exit termination protocol: Stop(DefaultFinalJoinTimeout).
func (r *ProcessRunner) Close() error {
	return r.Stop(DefaultFinalJoinTimeout)
}

func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "runner"
	}
	return string(out)
}
