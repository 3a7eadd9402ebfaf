package remote

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	runloopErrors "github.com/runloop-rt/runloop/errors"
)

// MethodHandler is the server-side implementation backing a registered
// remote method.
type MethodHandler func(args []any) (any, error)

// AttrHandler is the server-side implementation backing a registered remote
// attribute.
type AttrHandler func() (any, error)

// Registry is the explicit list of methods and attributes a hosted object
// exposes to remote callers: an unknown name fails with a clear diagnostic
// at dispatch, never a silent fallback. CommandDriven runnables hold one
// Registry per receiver id.
type Registry struct {
	receiverID string
	methods    map[string]MethodHandler
	attrs      map[string]AttrHandler
}

// NewRegistry returns an empty Registry for the given receiver id.
func NewRegistry(receiverID string) *Registry {
	return &Registry{
		receiverID: receiverID,
		methods:    map[string]MethodHandler{},
		attrs:      map[string]AttrHandler{},
	}
}

// ReceiverID returns the id calls against this registry are addressed to.
func (r *Registry) ReceiverID() string { return r.receiverID }

// Expose registers a method handler under name. Panics on duplicate
// registration: this is a wiring bug caught at startup, not a runtime
// condition.
func (r *Registry) Expose(name string, h MethodHandler) *Registry {
	if _, exists := r.methods[name]; exists {
		panic(fmt.Sprintf("remote: method %q already registered on receiver %s", name, r.receiverID))
	}
	r.methods[name] = h
	return r
}

// ExposeAttr registers an attribute handler under name.
func (r *Registry) ExposeAttr(name string, h AttrHandler) *Registry {
	if _, exists := r.attrs[name]; exists {
		panic(fmt.Sprintf("remote: attribute %q already registered on receiver %s", name, r.receiverID))
	}
	r.attrs[name] = h
	return r
}

// Schema lists every exposed method and attribute name, for embedding in a
// WireRef so the far side can validate locally before ever dispatching.
func (r *Registry) Schema() []string {
	names := make([]string, 0, len(r.methods)+len(r.attrs))
	for n := range r.methods {
		names = append(names, n)
	}
	for n := range r.attrs {
		names = append(names, n)
	}
	return names
}

// Dispatch invokes the named method, unwrapping any selfRef sentinel back
// into a live reference to this same receiver before the handler runs.
func (r *Registry) Dispatch(name string, args []any, selfWire WireRef) (any, error) {
	h, ok := r.methods[name]
	if !ok {
		return nil, runloopErrors.NewProgrammingError("remote.Registry.Dispatch",
			"receiver %s has no exposed method %q", r.receiverID, name)
	}
	resolved := make([]any, len(args))
	for i, a := range args {
		if _, isSelf := a.(selfRef); isSelf {
			resolved[i] = selfWire
			continue
		}
		resolved[i] = a
	}
	return h(resolved)
}

// DispatchGet reads the named attribute.
func (r *Registry) DispatchGet(name string) (any, error) {
	h, ok := r.attrs[name]
	if !ok {
		return nil, runloopErrors.NewProgrammingError("remote.Registry.DispatchGet",
			"receiver %s has no exposed attribute %q", r.receiverID, name)
	}
	return h()
}

// Exposer is implemented by hosted objects that must not cross the scope
// boundary. When a handler returns one, the hosted side allocates a fresh
// receiver id, builds a Registry from ExposeRemote, and sends back a
// reference in place of the value itself.
type Exposer interface {
	ExposeRemote(r *Registry)
}

// Table is the hosted side's map of live receiver ids to their registries:
// the runnable's own registry plus one per object published through a
// remote result. Dispatch routes on the incoming command's receiver id;
// every entry dies with the runnable, so a reference that outlives its
// source runner can never resolve here again.
type Table struct {
	mu   sync.Mutex
	self *Registry
	byID map[string]*Registry
}

// NewTable returns a Table whose empty receiver id resolves to self.
func NewTable(self *Registry) *Table {
	return &Table{self: self, byID: map[string]*Registry{self.receiverID: self}}
}

// Lookup resolves receiverID to the registry a command should dispatch
// against; empty means the runnable itself.
func (t *Table) Lookup(receiverID string) (*Registry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if receiverID == "" {
		return t.self, nil
	}
	reg, ok := t.byID[receiverID]
	if !ok {
		return nil, runloopErrors.NewProgrammingError("remote.Table.Lookup",
			"no live object with receiver id %s", receiverID)
	}
	return reg, nil
}

// Publish allocates a fresh receiver id for obj, collects the methods and
// attributes obj exposes into a new Registry, and returns the wire
// reference to send in place of the value.
func (t *Table) Publish(obj Exposer) WireRef {
	reg := NewRegistry(uuid.NewString())
	obj.ExposeRemote(reg)
	t.mu.Lock()
	t.byID[reg.receiverID] = reg
	t.mu.Unlock()
	return WireRef{ReceiverID: reg.receiverID, Schema: reg.Schema()}
}
