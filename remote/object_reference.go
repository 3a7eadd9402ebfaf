package remote

import (
	"encoding/gob"
	"time"

	runloopErrors "github.com/runloop-rt/runloop/errors"
	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/primitives"
	"github.com/runloop-rt/runloop/queue"
)

func init() {
	gob.Register(WireRef{})
	gob.Register(selfRef{})
}

// WireRef is the wire representation of a handle to a remote object: just
// enough to re-hydrate a Reference on the receiving side once it has its
// own command queue and status buffer to route through. Opaque on the wire,
// only meaningful once rebound to a local proxy.
type WireRef struct {
	ReceiverID string
	Schema     []string // allowed method/attribute names, for local diagnostics
}

// selfRef is the sentinel substituted for any outgoing Reference argument
// that points back at the receiver handling the call, so the argument never
// has to round-trip through the wire as itself.
type selfRef struct{}

// Reference is a live, callable handle to an object hosted in some runner's
// scope. It is obtained as the return value of a remote call or get, and
// used exactly like a Proxy to make further calls against the same
// receiver.
type Reference struct {
	receiverID string
	schema     map[string]struct{}
	names      []string // schema names in their wire order

	cmdQueue *queue.Managed[message.Command]
	statuses *queue.Buffer[message.Status]
	alive    *primitives.Atomic[bool]
	timeout  func() time.Duration
}

// bindReference constructs a live Reference from its wire form, attached to
// the command queue and status buffer of the runner that will actually
// service it.
func bindReference(w WireRef, cmdQueue *queue.Managed[message.Command], statuses *queue.Buffer[message.Status], alive *primitives.Atomic[bool], timeout func() time.Duration) *Reference {
	schema := make(map[string]struct{}, len(w.Schema))
	for _, n := range w.Schema {
		schema[n] = struct{}{}
	}
	return &Reference{
		receiverID: w.ReceiverID,
		schema:     schema,
		names:      append([]string(nil), w.Schema...),
		cmdQueue:   cmdQueue,
		statuses:   statuses,
		alive:      alive,
		timeout:    timeout,
	}
}

// Wire returns the wire representation of this reference, for a handler
// that wants to hand the reference itself back out as a remote result.
func (r *Reference) Wire() WireRef { return r.wire() }

func (r *Reference) wire() WireRef {
	return WireRef{ReceiverID: r.receiverID, Schema: append([]string(nil), r.names...)}
}

// Method returns a callable Proxy bound to name on this reference's
// receiver. name must be one of the names the reference was published with;
// anything else is a local ProgrammingError rather than a dispatch
// attempt.
func (r *Reference) Method(name string, fn any) (*Proxy, error) {
	if _, ok := r.schema[name]; !ok {
		return nil, runloopErrors.NewProgrammingError("remote.Reference.Method",
			"%q is not an exposed method of receiver %s", name, r.receiverID)
	}
	return newProxy(name, r.receiverID, fn, r.cmdQueue, r.statuses, r.alive, r.timeout), nil
}
