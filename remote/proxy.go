// Package remote implements the synchronous remote-call protocol: a Proxy
// in the owner scope posts a RemoteCall/RemoteGet command into a runnable's
// command queue and blocks on its status buffer for the matching
// RemoteResult, tagged by call_id. Signatures are validated once, at
// proxy-creation time, against the real target function's Go type - never
// reflected on a per-call basis.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	runloopErrors "github.com/runloop-rt/runloop/errors"
	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/primitives"
	"github.com/runloop-rt/runloop/queue"
	"github.com/runloop-rt/runloop/tracefail"
)

// RemoteMethodCallDefaultTimeout bounds how long a Call or Get blocks for
// its RemoteResult when the proxy was built without a per-handle timeout.
const RemoteMethodCallDefaultTimeout = 60 * time.Second

const (
	// callCheckLimitResponse is the QoS threshold past which a single call
	// logs a warning about taking unexpectedly long.
	callCheckLimitResponse = time.Second

	// callCheckHistoryLength is how many recent call timestamps each proxy
	// retains for rate checking.
	callCheckHistoryLength = 10

	// callCheckRateLookbackCount/callCheckRateLookbackWindow: more than
	// this many calls within the window triggers the excessive-rate
	// warning.
	callCheckRateLookbackCount  = 3
	callCheckRateLookbackWindow = time.Second
)

// Warner receives QoS diagnostics. Logging hooks this up; tests can swap in
// a recording stub.
type Warner interface {
	Warnf(format string, args ...any)
}

type noopWarner struct{}

func (noopWarner) Warnf(string, ...any) {}

// Proxy is a callable handle to a single named method or attribute on a
// receiver hosted by some runner. Construct one with NewMethodProxy /
// NewAttributeProxy (or via Reference.Method once you hold a Reference).
type Proxy struct {
	name       string
	receiverID string
	spec       argSpec
	isGet      bool

	cmdQueue *queue.Managed[message.Command]
	statuses *queue.Buffer[message.Status]
	alive    *primitives.Atomic[bool]
	timeout  func() time.Duration

	warner     Warner
	tracker    *timestampTracker
	warnedSlow bool
	warnedRate bool
}

// NewMethodProxy returns a Proxy for a remote method call. fn is only used
// to reify the parameter descriptor; it is never invoked locally.
func NewMethodProxy[F any](name, receiverID string, fn F, cmdQueue *queue.Managed[message.Command], statuses *queue.Buffer[message.Status], alive *primitives.Atomic[bool], timeout func() time.Duration) *Proxy {
	return newProxy(name, receiverID, fn, cmdQueue, statuses, alive, timeout)
}

func newProxy(name, receiverID string, fn any, cmdQueue *queue.Managed[message.Command], statuses *queue.Buffer[message.Status], alive *primitives.Atomic[bool], timeout func() time.Duration) *Proxy {
	return &Proxy{
		name:       name,
		receiverID: receiverID,
		spec:       describe(name, fn),
		cmdQueue:   cmdQueue,
		statuses:   statuses,
		alive:      alive,
		timeout:    timeout,
		warner:     noopWarner{},
		tracker:    newTimestampTracker(callCheckHistoryLength, callCheckRateLookbackWindow, callCheckRateLookbackCount),
	}
}

// WithParamNames attaches the declared parameter names to the proxy's
// signature, so an arity mismatch can name the first missing parameter
// instead of only reporting counts. Returns the proxy for chaining.
func (p *Proxy) WithParamNames(names ...string) *Proxy {
	p.spec.params = names
	return p
}

// NewAttributeProxy returns a Proxy for a remote attribute read (RemoteGet).
// It takes no arguments.
func NewAttributeProxy(name, receiverID string, cmdQueue *queue.Managed[message.Command], statuses *queue.Buffer[message.Status], alive *primitives.Atomic[bool], timeout func() time.Duration) *Proxy {
	return &Proxy{
		name:       name,
		receiverID: receiverID,
		spec:       argSpec{name: name, min: 0, max: 0},
		isGet:      true,
		cmdQueue:   cmdQueue,
		statuses:   statuses,
		alive:      alive,
		timeout:    timeout,
		warner:     noopWarner{},
		tracker:    newTimestampTracker(callCheckHistoryLength, callCheckRateLookbackWindow, callCheckRateLookbackCount),
	}
}

// SetWarner installs the QoS diagnostic sink. Defaults to a no-op.
func (p *Proxy) SetWarner(w Warner) {
	if w == nil {
		w = noopWarner{}
	}
	p.warner = w
}

// Call invokes the remote method with args, blocking until the result
// arrives or the proxy's timeout elapses.
func (p *Proxy) Call(ctx context.Context, args ...any) (any, error) {
	if p.isGet {
		return nil, runloopErrors.NewProgrammingError("remote.Proxy.Call", "%q is an attribute proxy, use Get", p.name)
	}
	if err := p.spec.validate(args); err != nil {
		return nil, err
	}
	if p.alive != nil && !p.alive.Get() {
		return nil, runloopErrors.NewProgrammingError("remote.Proxy.Call",
			"receiver %s: source runnable has already stopped", p.receiverID)
	}

	callID := uuid.NewString()
	cmd := message.RemoteCall(callID, p.name, p.receiverID, sanitizeArgs(args, p.receiverID), nil)
	return p.roundTrip(ctx, callID, cmd)
}

// Get performs a remote attribute read.
func (p *Proxy) Get(ctx context.Context) (any, error) {
	if !p.isGet {
		return nil, runloopErrors.NewProgrammingError("remote.Proxy.Get", "%q is a method proxy, use Call", p.name)
	}
	if p.alive != nil && !p.alive.Get() {
		return nil, runloopErrors.NewProgrammingError("remote.Proxy.Get",
			"receiver %s: source runnable has already stopped", p.receiverID)
	}
	callID := uuid.NewString()
	cmd := message.RemoteGet(callID, p.name, p.receiverID)
	return p.roundTrip(ctx, callID, cmd)
}

func (p *Proxy) roundTrip(ctx context.Context, callID string, cmd message.Command) (any, error) {
	start := time.Now()

	if p.tracker.record(start) && !p.warnedRate {
		p.warnedRate = true
		p.warner.Warnf("remote proxy %q on receiver %s: more than %d calls within %s",
			p.name, p.receiverID, callCheckRateLookbackCount, callCheckRateLookbackWindow)
	}

	// Subscribe before the command goes on the wire: a fast responder may
	// otherwise publish the result before the subscription exists, and the
	// caller would block out its full timeout for an answer that already
	// came and went.
	sub := p.statuses.Subscribe(callID)
	defer sub.Close()

	if err := p.cmdQueue.Put(cmd); err != nil {
		return nil, err
	}

	timeout := RemoteMethodCallDefaultTimeout
	if p.timeout != nil {
		timeout = p.timeout()
	}

	status, ok := sub.WaitFor(ctx, timeout, func(s message.Status) bool {
		return s.Kind == message.KindRemoteResult && s.CallID == callID
	})
	if !ok {
		return nil, &runloopErrors.TimeoutError{What: fmt.Sprintf("remote call %s on %s", p.name, p.receiverID), Timeout: timeout.String()}
	}

	if d := time.Since(start); d > callCheckLimitResponse && !p.warnedSlow {
		p.warnedSlow = true
		p.warner.Warnf("remote proxy %q on receiver %s: response took %s", p.name, p.receiverID, d)
	}

	if status.Err != nil {
		cause := tracefail.New(fmt.Errorf("%s", status.Err.Message), 0)
		cause.OriginTraceback = status.Err.RenderedTraceback
		return nil, &runloopErrors.RemoteFailure{CallID: callID, Target: p.name, Cause: cause}
	}

	if ref, ok := status.Value.(WireRef); ok {
		return bindReference(ref, p.cmdQueue, p.statuses, p.alive, p.timeout), nil
	}
	return status.Value, nil
}

// sanitizeArgs replaces any Reference argument pointing back at receiverID
// with the selfRef sentinel, so a self-referential argument never has to be
// encoded as itself.
func sanitizeArgs(args []any, receiverID string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if ref, ok := a.(*Reference); ok && ref.receiverID == receiverID {
			out[i] = selfRef{}
			continue
		}
		out[i] = a
	}
	return out
}
