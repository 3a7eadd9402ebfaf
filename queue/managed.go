// Package queue implements ManagedQueue and Buffer: the bounded
// multi-producer/single-consumer transport the command/status protocol
// rides, with a scoped-lifetime discipline - use outside the scope is a
// programming error, and scope exit drains and discards remaining items
// before releasing any background goroutine.
package queue

import (
	"fmt"
	"io"
	"sync"
	"time"

	runloopErrors "github.com/runloop-rt/runloop/errors"
)

// discardTimeout is the per-pop timeout used while draining a queue on scope
// exit: 0 for intra-process transports (the handoff is synchronous), 100ms
// for cross-process ones, whose handoff is asynchronous.
func discardTimeout(k Kind) time.Duration {
	if k == Cross {
		return 100 * time.Millisecond
	}
	return 0
}

// Managed is a bounded MPSC queue with a scoped lifetime. The zero value is
// not usable; construct with NewIntra or NewCross.
type Managed[T any] struct {
	name      string
	capacity  int
	transport transport[T]

	mu      sync.Mutex
	inScope bool
	exited  bool
}

// NewIntra returns a Managed queue backed by the intra-process transport.
// capacity == 0 means unbounded.
func NewIntra[T any](name string, capacity int) *Managed[T] {
	return &Managed[T]{
		name:      name,
		capacity:  capacity,
		transport: newIntraTransport[T](capacity),
	}
}

// NewCross returns a Managed queue backed by a cross-process transport
// already dialed by the caller (typically a ProcessRunner's control
// connection).
func NewCross[T any](name string, tr transport[T]) *Managed[T] {
	return &Managed[T]{name: name, transport: tr}
}

// NewCrossFromConn returns a Managed queue riding conn with gob framing,
// typically the Unix domain socket connection a ProcessRunner dials between
// the owner process and its hosted child.
func NewCrossFromConn[T any](name string, conn io.ReadWriteCloser, bufferSize int) *Managed[T] {
	return &Managed[T]{
		name:      name,
		transport: newCrossTransport[T](conn, bufferSize),
	}
}

// Name returns the queue's diagnostic name.
func (q *Managed[T]) Name() string { return q.name }

// TransportKind reports whether this queue rides an intra-process or a
// cross-process transport, so an Environment can reject mixing primitives
// across scopes.
func (q *Managed[T]) TransportKind() Kind { return q.transport.kind() }

// Enter opens the queue's scope. Put is a programming error before Enter or
// after Exit (except for the LogQueue subclass, see logqueue.go).
func (q *Managed[T]) Enter() *Managed[T] {
	q.mu.Lock()
	q.inScope = true
	q.mu.Unlock()
	return q
}

// Exit closes the queue's scope: drains and discards all undelivered items
// with a bounded per-pop timeout, then - for cross-process transports -
// closes and joins the internal background reader goroutine. Safe to call
// more than once.
func (q *Managed[T]) Exit() {
	q.mu.Lock()
	if q.exited {
		q.mu.Unlock()
		return
	}
	q.exited = true
	q.inScope = false
	q.mu.Unlock()

	timeout := discardTimeout(q.transport.kind())
	for {
		if _, ok := q.transport.recv(timeout); !ok {
			break
		}
	}
	q.transport.closeTransport()
}

func (q *Managed[T]) inScopeNow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inScope && !q.exited
}

// Put enqueues item. If the queue is outside its scope this is a
// ProgrammingError naming the queue, with the one exception of LogQueue,
// which silently no-ops instead (see logqueue.go).
func (q *Managed[T]) Put(item T) error {
	if !q.inScopeNow() {
		return runloopErrors.NewProgrammingError("queue.Put",
			"managed queue %q used outside of its scoped lifetime", q.name)
	}
	return q.transport.send(item)
}

// Get dequeues an item, blocking for up to timeout (timeout < 0 means block
// forever; timeout == 0 means don't block at all). ok is false if nothing
// was available within the given timeout, including always after Exit.
func (q *Managed[T]) Get(timeout time.Duration) (item T, ok bool) {
	return q.transport.recv(timeout)
}

func (q *Managed[T]) String() string {
	if q.name != "" {
		return fmt.Sprintf("ManagedQueue %q", q.name)
	}
	return "ManagedQueue"
}
