// Package errors defines the runloop error taxonomy: the conceptual error
// kinds named in the design (ProgrammingError, TimeoutError,
// RunnerStillAliveError, RunnableFailure, RemoteFailure), each a concrete
// Go type satisfying the error interface.
//
// Grounded on the small, single-purpose error packages elsewhere in the
// retrieval pack (e.g. github.com/tombee/conductor/pkg/errors) rather than
// on sentinel values, since several of these errors carry call-site context
// (a queue name, a call id, a runner name) that callers need to format.
package errors

import "fmt"

// ProgrammingError reports misuse of a scoped resource: a second Start on a
// runner, a Put on a queue outside its scope, a remote call issued before
// its runner has reached the running state.
type ProgrammingError struct {
	Op  string
	Msg string
}

func (e *ProgrammingError) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// NewProgrammingError builds a ProgrammingError with a formatted message.
func NewProgrammingError(op, format string, args ...any) *ProgrammingError {
	return &ProgrammingError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// TimeoutError reports that a remote call or a runner join did not complete
// within its deadline.
type TimeoutError struct {
	// What identifies the operation that timed out (e.g. "remote call
	// returns_value", "join of runner worker-1").
	What    string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.What, e.Timeout)
}

// RunnerStillAliveError is raised at a runner's scope exit when the hosted
// scope does not terminate within DefaultFinalJoinTimeout despite Stop.
type RunnerStillAliveError struct {
	RunnerName string
	Waited     string
}

func (e *RunnerStillAliveError) Error() string {
	return fmt.Sprintf("runner %q did not terminate after %s of waiting for it to stop", e.RunnerName, e.Waited)
}

// RunnableFailure wraps a failure captured inside the hosted scope and
// surfaced to the owner via CheckForExceptions.
type RunnableFailure struct {
	RunnerName string
	Cause      error
}

func (e *RunnableFailure) Error() string {
	return fmt.Sprintf("runnable hosted by %q failed: %v", e.RunnerName, e.Cause)
}

func (e *RunnableFailure) Unwrap() error {
	return e.Cause
}

// RemoteFailure wraps a RemoteResult whose outcome was a TraceableFailure,
// re-raised in the caller's scope when the result is unpacked.
type RemoteFailure struct {
	CallID string
	Target string
	Cause  error
}

func (e *RemoteFailure) Error() string {
	return fmt.Sprintf("remote call %s (%s) failed: %v", e.CallID, e.Target, e.Cause)
}

func (e *RemoteFailure) Unwrap() error {
	return e.Cause
}
