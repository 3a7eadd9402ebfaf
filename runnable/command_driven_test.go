package runnable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/queue"
	"github.com/runloop-rt/runloop/remote"
)

func newTestCommandDriven(t *testing.T, name string, tick time.Duration) (*CommandDriven, *queue.Managed[message.Command]) {
	t.Helper()
	cmds := queue.NewIntra[message.Command](name+":commands", 0).Enter()
	t.Cleanup(cmds.Exit)
	statuses := queue.New[message.Status](name + ":statuses")
	return NewCommandDriven(name, name, cmds, statuses, tick), cmds
}

func TestCommandDrivenPublishesStartedThenStops(t *testing.T) {
	t.Parallel()

	cd, cmds := newTestCommandDriven(t, "demo", 0)
	sub := cd.Statuses().Subscribe("watcher")
	defer sub.Close()

	done := make(chan error, 1)
	go func() { done <- cd.Execute(context.Background()) }()

	started, ok := sub.Next(time.Second)
	require.True(t, ok)
	assert.Equal(t, message.KindStarted, started.Kind)

	_ = cmds.Put(message.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after Stop")
	}
}

func TestCommandDrivenDispatchesRemoteCall(t *testing.T) {
	t.Parallel()

	cd, cmds := newTestCommandDriven(t, "demo", 0)
	cd.Registry().Expose("Double", func(args []any) (any, error) {
		return args[0].(int) * 2, nil
	})

	sub := cd.Statuses().Subscribe("watcher")
	defer sub.Close()

	go func() { _ = cd.Execute(context.Background()) }()

	_, ok := sub.Next(time.Second) // Started
	require.True(t, ok)

	require.NoError(t, cmds.Put(message.RemoteCall("call-1", "Double", "demo", []any{21}, nil)))

	result, ok := sub.WaitFor(context.Background(), time.Second, func(s message.Status) bool {
		return s.Kind == message.KindRemoteResult && s.CallID == "call-1"
	})
	require.True(t, ok)
	assert.Equal(t, 42, result.Value)

	cd.Stop()
}

func TestCommandDrivenOnTickFiresWhenIdle(t *testing.T) {
	t.Parallel()

	cd, _ := newTestCommandDriven(t, "demo", 10*time.Millisecond)
	ticks := make(chan struct{}, 8)
	cd.SetOnTick(func(ctx context.Context) error {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cd.Execute(ctx) }()

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("OnTick never fired")
	}

	cancel()
	<-done
}

// counterObject stands in for a hosted value that must not cross the scope
// boundary: handlers return it, and the dispatch loop is expected to hand
// the caller a reference with a fresh receiver id instead.
type counterObject struct {
	n int
}

func (c *counterObject) ExposeRemote(r *remote.Registry) {
	r.Expose("Add", func(args []any) (any, error) {
		c.n += args[0].(int)
		return c.n, nil
	})
	r.ExposeAttr("Total", func() (any, error) {
		return c.n, nil
	})
}

func TestCommandDrivenPublishesReferenceForNonCopyableValue(t *testing.T) {
	t.Parallel()

	cd, cmds := newTestCommandDriven(t, "demo", 0)
	obj := &counterObject{}
	cd.Registry().Expose("GetCounter", func(args []any) (any, error) {
		return obj, nil
	})

	sub := cd.Statuses().Subscribe("watcher")
	defer sub.Close()

	go func() { _ = cd.Execute(context.Background()) }()
	_, ok := sub.Next(time.Second) // Started
	require.True(t, ok)
	defer cd.Stop()

	require.NoError(t, cmds.Put(message.RemoteCall("call-1", "GetCounter", "", nil, nil)))
	result, ok := sub.WaitFor(context.Background(), time.Second, func(s message.Status) bool {
		return s.Kind == message.KindRemoteResult && s.CallID == "call-1"
	})
	require.True(t, ok)

	ref, ok := result.Value.(remote.WireRef)
	require.True(t, ok, "a non-copyable outcome must come back as a reference, got %T", result.Value)
	assert.NotEmpty(t, ref.ReceiverID)
	assert.NotEqual(t, "demo", ref.ReceiverID, "the object's receiver id must be distinct from the runnable's")
	assert.ElementsMatch(t, []string{"Add", "Total"}, ref.Schema)

	// Calls and gets addressed to the fresh receiver id land on the object.
	require.NoError(t, cmds.Put(message.RemoteCall("call-2", "Add", ref.ReceiverID, []any{5}, nil)))
	result, ok = sub.WaitFor(context.Background(), time.Second, func(s message.Status) bool {
		return s.Kind == message.KindRemoteResult && s.CallID == "call-2"
	})
	require.True(t, ok)
	require.Nil(t, result.Err)
	assert.Equal(t, 5, result.Value)

	require.NoError(t, cmds.Put(message.RemoteGet("call-3", "Total", ref.ReceiverID)))
	result, ok = sub.WaitFor(context.Background(), time.Second, func(s message.Status) bool {
		return s.Kind == message.KindRemoteResult && s.CallID == "call-3"
	})
	require.True(t, ok)
	assert.Equal(t, 5, result.Value)

	// An id no live object owns fails with a diagnostic, not a fallback.
	require.NoError(t, cmds.Put(message.RemoteCall("call-4", "Add", "no-such-receiver", []any{1}, nil)))
	result, ok = sub.WaitFor(context.Background(), time.Second, func(s message.Status) bool {
		return s.Kind == message.KindRemoteResult && s.CallID == "call-4"
	})
	require.True(t, ok)
	require.NotNil(t, result.Err)
	assert.Contains(t, result.Err.Message, "no-such-receiver")
}

func TestCommandDrivenRejectsMalformedCommand(t *testing.T) {
	t.Parallel()

	cd, cmds := newTestCommandDriven(t, "demo", 0)
	sub := cd.Statuses().Subscribe("watcher")
	defer sub.Close()

	go func() { _ = cd.Execute(context.Background()) }()
	_, ok := sub.Next(time.Second) // Started
	require.True(t, ok)
	defer cd.Stop()

	// A RemoteCall with no target name fails validation before dispatch.
	require.NoError(t, cmds.Put(message.Command{Kind: message.KindRemoteCall, CallID: "bad-1"}))
	result, ok := sub.WaitFor(context.Background(), time.Second, func(s message.Status) bool {
		return s.Kind == message.KindRemoteResult && s.CallID == "bad-1"
	})
	require.True(t, ok)
	require.NotNil(t, result.Err)
	assert.Contains(t, result.Err.Message, "RemoteCall")
}
