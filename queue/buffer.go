package queue

import (
	"context"
	"sync"
	"time"

	runloopErrors "github.com/runloop-rt/runloop/errors"
)

// Buffer is a fan-out layer over Managed queues: one publish side, any
// number of subscriptions, each subscription getting its own copy of every
// published value. This is the transport the remote-call protocol uses to
// deliver RemoteResult status messages to whichever caller is waiting on a
// given call_id.
type Buffer[T any] struct {
	name string

	mu   sync.Mutex
	subs map[*Subscription[T]]struct{}

	publishers  int
	inScopeOnce bool
}

// New returns a fan-out Buffer.
func New[T any](name string) *Buffer[T] {
	return &Buffer[T]{name: name, subs: map[*Subscription[T]]struct{}{}}
}

// Publisher is a scoped handle used to publish values. Publish outside of
// scope is a ProgrammingError.
type Publisher[T any] struct {
	buf    *Buffer[T]
	closed bool
}

// Publish returns a scoped Publisher. Callers should defer its Close.
func (b *Buffer[T]) Publish() *Publisher[T] {
	b.mu.Lock()
	b.publishers++
	b.mu.Unlock()
	return &Publisher[T]{buf: b}
}

// PublishValue enqueues v to every current subscription.
func (p *Publisher[T]) PublishValue(v T) error {
	if p.closed {
		return runloopErrors.NewProgrammingError("Buffer.PublishValue",
			"publisher for buffer %q used after Close", p.buf.name)
	}
	p.buf.mu.Lock()
	defer p.buf.mu.Unlock()
	for s := range p.buf.subs {
		_ = s.queue.Put(v)
	}
	return nil
}

// Close ends the publisher's scope.
func (p *Publisher[T]) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.buf.mu.Lock()
	p.buf.publishers--
	p.buf.mu.Unlock()
}

// Subscription is a scoped handle receiving published values.
type Subscription[T any] struct {
	buf   *Buffer[T]
	queue *Managed[T]
}

// Subscribe returns a new scoped Subscription with its own unbounded
// Managed queue, already entered.
func (b *Buffer[T]) Subscribe(token string) *Subscription[T] {
	q := NewIntra[T]("buffer:"+b.name+":"+token, 0).Enter()
	s := &Subscription[T]{buf: b, queue: q}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Next dequeues the next published value for this subscription, blocking up
// to timeout. Lower-level than WaitFor: used by a ProcessRunner to pump
// locally-published values onto a cross-process transport without filtering
// by predicate.
func (s *Subscription[T]) Next(timeout time.Duration) (T, bool) {
	return s.queue.Get(timeout)
}

// Close ends the subscription's scope, draining its queue.
func (s *Subscription[T]) Close() {
	s.buf.mu.Lock()
	delete(s.buf.subs, s)
	s.buf.mu.Unlock()
	s.queue.Exit()
}

// WaitFor blocks until an item matching predicate arrives, or timeout
// elapses. Non-matching items are discarded (a status buffer subscription
// is typically filtered on call_id).
func (s *Subscription[T]) WaitFor(ctx context.Context, timeout time.Duration, predicate func(T) bool) (T, bool) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, false
		}
		if ctx.Err() != nil {
			var zero T
			return zero, false
		}
		item, ok := s.queue.Get(remaining)
		if !ok {
			var zero T
			return zero, false
		}
		if predicate(item) {
			return item, true
		}
	}
}
