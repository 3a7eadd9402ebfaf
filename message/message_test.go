package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandConstructors(t *testing.T) {
	t.Parallel()

	stop := Stop()
	assert.Equal(t, KindStop, stop.Kind)

	call := RemoteCall("call-1", "Increment", "counter", []any{1}, nil)
	assert.Equal(t, KindRemoteCall, call.Kind)
	assert.Equal(t, "call-1", call.CallID)
	assert.Equal(t, "Increment", call.TargetName)
	assert.Equal(t, "counter", call.ReceiverID)
	assert.Equal(t, []any{1}, call.Args)

	get := RemoteGet("call-2", "Value", "counter")
	assert.Equal(t, KindRemoteGet, get.Kind)
	assert.Equal(t, "Value", get.TargetName)
}

func TestCommandKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Stop", KindStop.String())
	assert.Equal(t, "RemoteCall", KindRemoteCall.String())
	assert.Equal(t, "RemoteGet", KindRemoteGet.String())
	assert.Equal(t, "Unknown", CommandKind(99).String())
}

func TestStatusConstructors(t *testing.T) {
	t.Parallel()

	started := Started()
	assert.Equal(t, KindStarted, started.Kind)

	result := RemoteResultValue("call-1", 42)
	assert.Equal(t, KindRemoteResult, result.Kind)
	assert.Equal(t, "call-1", result.CallID)
	assert.Equal(t, 42, result.Value)
	assert.Nil(t, result.Err)

	failure := RemoteResultFailure("call-2", &Failure{Message: "boom"})
	assert.Equal(t, KindRemoteResult, failure.Kind)
	assert.Equal(t, "boom", failure.Err.Message)
}

func TestCommandValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Stop().Validate())
	assert.NoError(t, RemoteCall("c1", "Increment", "counter", []any{1}, nil).Validate())
	assert.NoError(t, RemoteGet("c2", "Value", "counter").Validate())

	assert.Error(t, Command{Kind: KindStop, CallID: "c1"}.Validate())
	assert.Error(t, Command{Kind: KindRemoteCall, CallID: "c1"}.Validate())
	assert.Error(t, Command{Kind: KindRemoteGet, CallID: "c2", TargetName: "Value", Args: []any{1}}.Validate())
	assert.Error(t, Command{Kind: CommandKind(99)}.Validate())
}

func TestStatusValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Started().Validate())
	assert.NoError(t, RemoteResultValue("c1", 42).Validate())
	assert.NoError(t, RemoteResultValue("c1", nil).Validate())
	assert.NoError(t, RemoteResultFailure("c2", &Failure{Message: "boom"}).Validate())
	assert.NoError(t, RunnableFailed(&Failure{Message: "boom"}).Validate())

	assert.Error(t, Status{Kind: KindStarted, CallID: "c1"}.Validate())
	assert.Error(t, Status{Kind: KindRemoteResult}.Validate())
	assert.Error(t, Status{Kind: KindRemoteResult, CallID: "c1", Value: 1, Err: &Failure{}}.Validate())
	assert.Error(t, Status{Kind: KindRunnableFailed}.Validate())
	assert.Error(t, Status{Kind: StatusKind(99)}.Validate())
}
