package logging

import (
	"context"
	"sync"
	"time"

	"github.com/runloop-rt/runloop/queue"
)

// Listener is the single scope permitted to perform real log output: every
// other scope only enqueues Records onto a LogQueue, and the listener
// drains it and prints.
type Listener struct {
	queue *queue.LogQueue[Record]

	mu     sync.Mutex
	paused bool
}

// NewListener wraps an already-entered LogQueue as a Listener.
func NewListener(q *queue.LogQueue[Record]) *Listener {
	return &Listener{queue: q}
}

// Run drains the queue until ctx is cancelled, printing every Record that
// arrives. While paused, Run stops calling Get entirely, so records already
// on the queue and any Put while paused stay queued rather than being
// drained and discarded. Resume picks back up where draining left off;
// nothing queued during a pause is lost.
func (l *Listener) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if l.isPaused() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		rec, ok := l.queue.Get(100 * time.Millisecond)
		if !ok {
			continue
		}
		process.emit(rec)
	}
}

func (l *Listener) isPaused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// Pause stops real output until Resume is called. Test-only: lets a test
// assert on ordering without racing the listener goroutine.
func (l *Listener) Pause() {
	l.mu.Lock()
	l.paused = true
	l.mu.Unlock()
}

// Resume re-enables real output.
func (l *Listener) Resume() {
	l.mu.Lock()
	l.paused = false
	l.mu.Unlock()
}
