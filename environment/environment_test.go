package environment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/queue"
	"github.com/runloop-rt/runloop/remote"
	"github.com/runloop-rt/runloop/runnable"
	"github.com/runloop-rt/runloop/scopeid"
)

type demoRunnable struct {
	runnable.Base
	stop chan struct{}
}

func newDemoRunnable(name string) *demoRunnable {
	return &demoRunnable{Base: runnable.NewBase(name), stop: make(chan struct{})}
}

func (r *demoRunnable) Execute(ctx context.Context) error {
	select {
	case <-r.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *demoRunnable) Stop() { close(r.stop) }

func TestThreadEnvironmentStartsAndStopsRunner(t *testing.T) {
	t.Parallel()

	env := NewThreadEnvironment()
	target := newDemoRunnable("demo")

	r, err := StartRunner(context.Background(), env, "demo", RunnableSpec{Runnable: target}, time.Second)
	require.NoError(t, err)

	require.NoError(t, r.Stop(time.Second))
}

func TestThreadEnvironmentRejectsMissingRunnable(t *testing.T) {
	t.Parallel()

	env := NewThreadEnvironment()
	_, err := env.NewRunner("demo", RunnableSpec{})
	assert.Error(t, err)
}

func TestProcessEnvironmentRejectsMissingFactoryName(t *testing.T) {
	t.Parallel()

	env := NewProcessEnvironment()
	_, err := env.NewRunner("demo", RunnableSpec{})
	assert.Error(t, err)
}

func TestThreadEnvironmentValidateAcceptsOwnQueue(t *testing.T) {
	t.Parallel()

	env := NewThreadEnvironment()
	q := env.NewCommandQueue("commands")
	assert.NoError(t, env.Validate(q))
}

// echoRunnable is a CommandDriven runnable exposing the four methods the
// remote round-trip scenario drives, recording each dispatched name along
// with the scope it executed in.
type echoRunnable struct {
	*runnable.CommandDriven

	mu       sync.Mutex
	scope    scopeid.ID
	received []string
	scopes   []scopeid.ID
}

func newEchoRunnable(commands *queue.Managed[message.Command], statuses *queue.Buffer[message.Status]) *echoRunnable {
	e := &echoRunnable{
		CommandDriven: runnable.NewCommandDriven("echo", "echo", commands, statuses, 50*time.Millisecond),
	}
	// PreWaitHook runs on the hosted goroutine, so the scope claimed here
	// is the hosted scope - the same one every dispatched handler below
	// then observes.
	e.SetPreWaitHook(func() {
		e.mu.Lock()
		if e.scope == (scopeid.ID{}) {
			e.scope = scopeid.New()
		}
		e.mu.Unlock()
	})
	record := func(name string) {
		e.mu.Lock()
		e.received = append(e.received, name)
		e.scopes = append(e.scopes, e.scope)
		e.mu.Unlock()
	}
	e.Registry().Expose("no_args", func(args []any) (any, error) {
		record("no_args")
		return nil, nil
	})
	e.Registry().Expose("one_arg", func(args []any) (any, error) {
		record("one_arg")
		return nil, nil
	})
	e.Registry().Expose("two_args", func(args []any) (any, error) {
		record("two_args")
		return nil, nil
	})
	e.Registry().Expose("returns_value", func(args []any) (any, error) {
		record("returns_value")
		return fmt.Sprintf("returns_value(%v, %v)", args[0], args[1]), nil
	})
	e.Registry().ExposeAttr("state", func() (any, error) {
		record("state")
		return "idle", nil
	})
	return e
}

func (e *echoRunnable) snapshot() ([]string, []scopeid.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.received...), append([]scopeid.ID(nil), e.scopes...)
}

// TestRemoteCallRoundTripThroughThreadRunner drives every exposed method of
// a hosted echoRunnable from the owner scope and verifies the commands
// arrive in call order, execute in the hosted scope rather than the
// owner's, and return the value the runnable produced.
func TestRemoteCallRoundTripThroughThreadRunner(t *testing.T) {
	t.Parallel()

	env := NewThreadEnvironment()
	commands := env.NewCommandQueue("echo:commands")
	statuses := env.NewStatusBuffer("echo:statuses")
	target := newEchoRunnable(commands, statuses)

	r, err := StartRunner(context.Background(), env, "echo", RunnableSpec{Runnable: target}, time.Second)
	require.NoError(t, err)
	defer func() { _ = r.Stop(time.Second) }()

	timeout := func() time.Duration { return 2 * time.Second }
	ctx := context.Background()

	noArgs := remote.NewMethodProxy("no_args", "echo", func() {}, commands, statuses, target.AliveFlag(), timeout)
	oneArg := remote.NewMethodProxy("one_arg", "echo", func(any) {}, commands, statuses, target.AliveFlag(), timeout)
	twoArgs := remote.NewMethodProxy("two_args", "echo", func(any, any) {}, commands, statuses, target.AliveFlag(), timeout).
		WithParamNames("a", "b")
	returnsValue := remote.NewMethodProxy("returns_value", "echo", func(any, any) string { return "" }, commands, statuses, target.AliveFlag(), timeout)
	state := remote.NewAttributeProxy("state", "echo", commands, statuses, target.AliveFlag(), timeout)

	_, err = noArgs.Call(ctx)
	require.NoError(t, err)
	_, err = oneArg.Call(ctx, "a")
	require.NoError(t, err)
	_, err = twoArgs.Call(ctx, "a", "b")
	require.NoError(t, err)
	v, err := returnsValue.Call(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "returns_value(a, b)", v)
	sv, err := state.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", sv)

	received, scopes := target.snapshot()
	assert.Equal(t, []string{"no_args", "one_arg", "two_args", "returns_value", "state"}, received)
	for _, s := range scopes {
		assert.Equal(t, scopes[0], s, "every dispatch must run in the same hosted scope")
		assert.False(t, s.Equal(scopeid.Owner), "dispatch must not run in the owner scope")
	}
}

// TestRemoteCallSignatureErrorStaysLocal is the signature-mismatch
// scenario: a short call fails in the owner scope naming the missing
// parameter, and nothing is placed on the command buffer.
func TestRemoteCallSignatureErrorStaysLocal(t *testing.T) {
	t.Parallel()

	env := NewThreadEnvironment()
	commands := env.NewCommandQueue("echo-sig:commands")
	statuses := env.NewStatusBuffer("echo-sig:statuses")
	target := newEchoRunnable(commands, statuses)

	r, err := StartRunner(context.Background(), env, "echo-sig", RunnableSpec{Runnable: target}, time.Second)
	require.NoError(t, err)
	defer func() { _ = r.Stop(time.Second) }()

	timeout := func() time.Duration { return 2 * time.Second }
	twoArgs := remote.NewMethodProxy("two_args", "echo", func(any, any) {}, commands, statuses, target.AliveFlag(), timeout).
		WithParamNames("a", "b")

	_, err = twoArgs.Call(context.Background(), "one")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a required argument: 'b'")

	time.Sleep(100 * time.Millisecond)
	received, _ := target.snapshot()
	assert.Empty(t, received, "a locally rejected call must never reach the runnable")
}
