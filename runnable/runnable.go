// Package runnable defines the unit of work hosted by a runner: the
// Runnable interface for blocking runnables that implement Execute
// directly, and CommandDriven, which drives Execute off a command queue.
package runnable

import "context"

// Runnable is user-supplied work hosted by a Runner.
type Runnable interface {
	// Name is used for display/debugging and as part of a runner's default
	// name.
	Name() string

	// Execute runs in the hosted scope. It returns nil on normal
	// termination, or a non-nil error to indicate failure.
	Execute(ctx context.Context) error

	// Stop is called from the owner scope to request termination.
	Stop()
}

// Base provides the Name() boilerplate most Runnables need; embed it and
// override Execute/Stop.
type Base struct {
	name string
}

// NewBase returns a Base with the given display name.
func NewBase(name string) Base {
	return Base{name: name}
}

// Name returns the configured display name.
func (b *Base) Name() string { return b.name }
