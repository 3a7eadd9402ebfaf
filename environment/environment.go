// Package environment provides matched families of primitives, queues, and
// runners: a ThreadEnvironment whose output is only valid mixed with other
// ThreadEnvironment output, and a ProcessEnvironment whose output crosses a
// process boundary. A ThreadEnvironment rejects a cross-process queue as a
// ProgrammingError rather than leaving it to fail confusingly deep inside a
// transport; a ProcessEnvironment accepts queues of either transport.
package environment

import (
	"context"
	"time"

	runloopErrors "github.com/runloop-rt/runloop/errors"
	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/primitives"
	"github.com/runloop-rt/runloop/queue"
	"github.com/runloop-rt/runloop/runnable"
	"github.com/runloop-rt/runloop/runner"
)

// Kind distinguishes the two environment families.
type Kind int

const (
	Thread Kind = iota
	Process
)

func (k Kind) String() string {
	if k == Process {
		return "process"
	}
	return "thread"
}

// RunnableSpec describes what a Runner should host: a live value for a
// ThreadEnvironment, or a registered factory name for a ProcessEnvironment.
// Exactly one of the two is consulted, depending on the Environment's Kind.
type RunnableSpec struct {
	Runnable    runnable.Runnable
	FactoryName string
}

// Environment is a factory for a matched set of primitives - every queue,
// buffer, and runner it returns is safe to use together, and Environment
// itself can be asked to validate a queue it did not create before a
// cross-environment caller hands it to a remote.Proxy.
type Environment interface {
	Kind() Kind
	NewEvent() primitives.Event
	NewLock() primitives.Lock
	NewCondition() primitives.Condition
	NewCommandQueue(name string) *queue.Managed[message.Command]
	NewStatusBuffer(name string) *queue.Buffer[message.Status]
	NewRunner(name string, spec RunnableSpec) (runner.Runner, error)

	// Validate returns a ProgrammingError if q has a transport this
	// Environment cannot use. A ThreadEnvironment rejects a cross-process
	// queue. A ProcessEnvironment accepts both intra-process and
	// cross-process queues (its own NewCommandQueue returns an intra-process
	// one), so it does not reject a queue built by a ThreadEnvironment.
	Validate(q *queue.Managed[message.Command]) error
}

// ThreadEnvironment hosts everything as cooperating goroutines within this
// process.
type ThreadEnvironment struct{}

// NewThreadEnvironment returns a ThreadEnvironment.
func NewThreadEnvironment() *ThreadEnvironment { return &ThreadEnvironment{} }

func (ThreadEnvironment) Kind() Kind { return Thread }

func (ThreadEnvironment) NewEvent() primitives.Event { return primitives.NewThreadEvent() }

func (ThreadEnvironment) NewLock() primitives.Lock { return primitives.NewThreadLock() }

func (ThreadEnvironment) NewCondition() primitives.Condition { return primitives.NewThreadCondition() }

func (ThreadEnvironment) NewCommandQueue(name string) *queue.Managed[message.Command] {
	return queue.NewIntra[message.Command](name, 0).Enter()
}

func (ThreadEnvironment) NewStatusBuffer(name string) *queue.Buffer[message.Status] {
	return queue.New[message.Status](name)
}

// NewRunner hosts spec.Runnable on a ThreadRunner. spec.Runnable must be
// non-nil; spec.FactoryName is ignored (it's a ProcessEnvironment concept).
func (e ThreadEnvironment) NewRunner(name string, spec RunnableSpec) (runner.Runner, error) {
	if spec.Runnable == nil {
		return nil, runloopErrors.NewProgrammingError("ThreadEnvironment.NewRunner",
			"a thread environment requires a live Runnable, got none")
	}
	return runner.NewThreadRunner(name, spec.Runnable), nil
}

func (ThreadEnvironment) Validate(q *queue.Managed[message.Command]) error {
	if q.TransportKind() != queue.Intra {
		return runloopErrors.NewProgrammingError("ThreadEnvironment.Validate",
			"queue %q belongs to a process environment, not this thread environment", q.Name())
	}
	return nil
}

// ProcessEnvironment hosts everything in self-reexecuted child OS
// processes.
type ProcessEnvironment struct{}

// NewProcessEnvironment returns a ProcessEnvironment.
func NewProcessEnvironment() *ProcessEnvironment { return &ProcessEnvironment{} }

func (ProcessEnvironment) Kind() Kind { return Process }

func (ProcessEnvironment) NewEvent() primitives.Event { return primitives.NewThreadEvent() }

func (ProcessEnvironment) NewLock() primitives.Lock { return primitives.NewThreadLock() }

func (ProcessEnvironment) NewCondition() primitives.Condition { return primitives.NewThreadCondition() }

// NewCommandQueue returns an intra-process queue for use on the owner side
// before a ProcessRunner has been started; once started, a ProcessRunner's
// own Commands()/Statuses() endpoints supersede it.
func (ProcessEnvironment) NewCommandQueue(name string) *queue.Managed[message.Command] {
	return queue.NewIntra[message.Command](name, 0)
}

func (ProcessEnvironment) NewStatusBuffer(name string) *queue.Buffer[message.Status] {
	return queue.New[message.Status](name)
}

// NewRunner hosts the Runnable registered under spec.FactoryName on a
// ProcessRunner. spec.Runnable is ignored: a child process reconstructs its
// own Runnable from the factory rather than receiving one across the
// boundary.
func (e ProcessEnvironment) NewRunner(name string, spec RunnableSpec) (runner.Runner, error) {
	if spec.FactoryName == "" {
		return nil, runloopErrors.NewProgrammingError("ProcessEnvironment.NewRunner",
			"a process environment requires a registered factory name, got none")
	}
	return runner.NewProcessRunner(name, spec.FactoryName), nil
}

func (ProcessEnvironment) Validate(q *queue.Managed[message.Command]) error {
	if q.TransportKind() != queue.Cross && q.TransportKind() != queue.Intra {
		return runloopErrors.NewProgrammingError("ProcessEnvironment.Validate",
			"queue %q has an unrecognized transport kind", q.Name())
	}
	return nil
}

// StartRunner is a convenience combining NewRunner and StartBlocking,
// mirroring the common case in the end-to-end workflow of constructing a
// runner and waiting for it to be ready to accept commands.
func StartRunner(ctx context.Context, env Environment, name string, spec RunnableSpec, startTimeout time.Duration) (runner.Runner, error) {
	r, err := env.NewRunner(name, spec)
	if err != nil {
		return nil, err
	}
	if err := r.StartBlocking(ctx, startTimeout); err != nil {
		return nil, err
	}
	return r, nil
}
