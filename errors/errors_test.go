package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgrammingErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewProgrammingError("queue.Put", "queue %q used outside of scope", "jobs")
	assert.EqualError(t, err, `queue.Put: queue "jobs" used outside of scope`)
}

func TestTimeoutErrorMessage(t *testing.T) {
	t.Parallel()

	err := &TimeoutError{What: "runner demo to start", Timeout: "2s"}
	assert.EqualError(t, err, "runner demo to start: timed out after 2s")
}

func TestRunnableFailureUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &RunnableFailure{RunnerName: "demo", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "demo")
}

func TestRemoteFailureUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("dispatch failed")
	err := &RemoteFailure{CallID: "c1", Target: "Increment", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Increment")
}

func TestRunnerStillAliveErrorMessage(t *testing.T) {
	t.Parallel()

	err := &RunnerStillAliveError{RunnerName: "demo", Waited: "4s"}
	assert.Contains(t, err.Error(), "demo")
	assert.Contains(t, err.Error(), "4s")
}
