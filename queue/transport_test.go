package queue

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireItem struct {
	N int
	S string
}

func TestCrossTransportRoundTripsOverConn(t *testing.T) {
	t.Parallel()

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	sender := NewCrossFromConn[wireItem]("a", a, 4).Enter()
	receiver := NewCrossFromConn[wireItem]("b", b, 4).Enter()
	defer sender.Exit()
	defer receiver.Exit()

	require.NoError(t, sender.Put(wireItem{N: 1, S: "hello"}))

	got, ok := receiver.Get(time.Second)
	require.True(t, ok)
	assert.Equal(t, wireItem{N: 1, S: "hello"}, got)
}

func TestCrossTransportKind(t *testing.T) {
	t.Parallel()

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	q := NewCrossFromConn[wireItem]("a", a, 4)
	assert.Equal(t, Cross, q.TransportKind())
	_ = b
}
