package runnable

import (
	"context"
	"time"

	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/primitives"
	"github.com/runloop-rt/runloop/queue"
	"github.com/runloop-rt/runloop/remote"
	"github.com/runloop-rt/runloop/tracefail"
)

// CommandDriven is a Runnable whose Execute is a command-processing loop:
// block on the next Command or an internal tick, dispatch Stop/RemoteCall/
// RemoteGet, otherwise call the overridable OnTick hook and loop again.
type CommandDriven struct {
	Base

	commands *queue.Managed[message.Command]
	statuses *queue.Buffer[message.Status]
	registry *remote.Registry
	table    *remote.Table
	alive    *primitives.Atomic[bool]

	tick     time.Duration
	onTick   func(ctx context.Context) error
	preWait  func()
	postWait func()
}

// NewCommandDriven returns a CommandDriven runnable dispatching against
// receiverID, reading commands from commands and publishing results on
// statuses. tick bounds how long Execute blocks between OnTick calls when
// no command arrives; zero means block until a command arrives.
func NewCommandDriven(name, receiverID string, commands *queue.Managed[message.Command], statuses *queue.Buffer[message.Status], tick time.Duration) *CommandDriven {
	registry := remote.NewRegistry(receiverID)
	return &CommandDriven{
		Base:     NewBase(name),
		commands: commands,
		statuses: statuses,
		registry: registry,
		table:    remote.NewTable(registry),
		alive:    primitives.NewAtomic(false),
		tick:     tick,
	}
}

// Registry returns the receiver-side method/attribute table for remote
// calls against this runnable. Populate it before Execute starts.
func (c *CommandDriven) Registry() *remote.Registry { return c.registry }

// Commands returns the command queue Execute reads from. A ProcessRunner
// hosting this runnable in a child process bridges a cross-process queue
// into this one rather than replacing it, so the dispatch loop above never
// needs to know which scope it ended up running in.
func (c *CommandDriven) Commands() *queue.Managed[message.Command] { return c.commands }

// Statuses returns the status buffer Execute publishes results on.
func (c *CommandDriven) Statuses() *queue.Buffer[message.Status] { return c.statuses }

// AliveFlag returns the shared flag Proxies created against this runnable's
// receiver check before issuing a call, so a call against an already-
// stopped runnable fails locally instead of hanging.
func (c *CommandDriven) AliveFlag() *primitives.Atomic[bool] { return c.alive }

// SetOnTick installs the hook called once per idle tick, i.e. whenever
// Commands.Get times out with nothing available.
func (c *CommandDriven) SetOnTick(f func(ctx context.Context) error) { c.onTick = f }

// SetPreWaitHook installs a hook called immediately before each blocking
// wait for the next command.
func (c *CommandDriven) SetPreWaitHook(f func()) { c.preWait = f }

// SetPostWaitHook installs a hook called immediately after each blocking
// wait for the next command returns, whether or not it produced one.
func (c *CommandDriven) SetPostWaitHook(f func()) { c.postWait = f }

// Execute runs the command loop until a Stop command arrives or ctx is
// cancelled.
func (c *CommandDriven) Execute(ctx context.Context) error {
	c.alive.Set(true)
	defer c.alive.Set(false)

	pub := c.statuses.Publish()
	defer pub.Close()
	_ = pub.PublishValue(message.Started())

	waitFor := c.tick
	if waitFor <= 0 {
		waitFor = 24 * time.Hour
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if c.preWait != nil {
			c.preWait()
		}
		cmd, ok := c.commands.Get(waitFor)
		if c.postWait != nil {
			c.postWait()
		}

		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.onTick != nil {
				if err := c.onTick(ctx); err != nil {
					return err
				}
			}
			continue
		}

		if err := cmd.Validate(); err != nil {
			c.publishResult(pub, cmd.CallID, nil, err)
			continue
		}

		switch cmd.Kind {
		case message.KindStop:
			return nil

		case message.KindRemoteCall:
			c.dispatchCall(pub, cmd)

		case message.KindRemoteGet:
			c.dispatchGet(pub, cmd)
		}
	}
}

// Stop enqueues a Stop command. Safe to call from the owner scope once the
// command queue has entered its scope.
func (c *CommandDriven) Stop() {
	_ = c.commands.Put(message.Stop())
}

func (c *CommandDriven) selfWire() remote.WireRef {
	return remote.WireRef{ReceiverID: c.registry.ReceiverID(), Schema: c.registry.Schema()}
}

func (c *CommandDriven) dispatchCall(pub *queue.Publisher[message.Status], cmd message.Command) {
	reg, err := c.table.Lookup(cmd.ReceiverID)
	if err != nil {
		c.publishResult(pub, cmd.CallID, nil, err)
		return
	}
	value, err := reg.Dispatch(cmd.TargetName, cmd.Args, c.selfWire())
	c.publishResult(pub, cmd.CallID, value, err)
}

func (c *CommandDriven) dispatchGet(pub *queue.Publisher[message.Status], cmd message.Command) {
	reg, err := c.table.Lookup(cmd.ReceiverID)
	if err != nil {
		c.publishResult(pub, cmd.CallID, nil, err)
		return
	}
	value, err := reg.DispatchGet(cmd.TargetName)
	c.publishResult(pub, cmd.CallID, value, err)
}

func (c *CommandDriven) publishResult(pub *queue.Publisher[message.Status], callID string, value any, err error) {
	if err != nil {
		failure := tracefail.New(err, 0)
		_ = pub.PublishValue(message.RemoteResultFailure(callID, &message.Failure{
			Message:           failure.Message,
			RenderedTraceback: failure.OriginTraceback,
		}))
		return
	}
	switch v := value.(type) {
	case *remote.Reference:
		value = v.Wire()
	case remote.Exposer:
		// A value that must not cross the boundary stays here, behind a
		// freshly allocated receiver id; the caller gets a reference and
		// every call through it routes back into this loop.
		value = c.table.Publish(v)
	}
	_ = pub.PublishValue(message.RemoteResultValue(callID, value))
}
