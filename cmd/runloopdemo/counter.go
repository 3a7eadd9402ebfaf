package main

import (
	"time"

	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/queue"
	"github.com/runloop-rt/runloop/remote"
	"github.com/runloop-rt/runloop/runnable"
	"github.com/runloop-rt/runloop/runner"
)

const counterFactoryName = "demo-counter"

// counterRunnable is the tiny stand-in object a demo Runner hosts: a
// CommandDriven runnable exposing an Increment(int) method and a Value
// attribute over the remote-call protocol, so the demo binary can exercise
// a full owner-to-hosted round trip regardless of which scope ends up
// running it.
type counterRunnable struct {
	*runnable.CommandDriven
	value int
}

func newCounterRunnable(commands *queue.Managed[message.Command], statuses *queue.Buffer[message.Status]) *counterRunnable {
	c := &counterRunnable{
		CommandDriven: runnable.NewCommandDriven("counter", counterFactoryName, commands, statuses, 200*time.Millisecond),
	}
	c.Registry().Expose("Increment", func(args []any) (any, error) {
		by := 1
		if len(args) > 0 {
			if n, ok := args[0].(int); ok {
				by = n
			}
		}
		c.value += by
		return c.value, nil
	})
	c.Registry().ExposeAttr("Value", func() (any, error) {
		return c.value, nil
	})
	return c
}

func init() {
	runner.RegisterFactory(counterFactoryName, func() runnable.Runnable {
		commands := queue.NewIntra[message.Command](counterFactoryName+":commands", 0).Enter()
		statuses := queue.New[message.Status](counterFactoryName + ":statuses")
		return newCounterRunnable(commands, statuses)
	})
}

// incrementProxy and valueProxy build the two Proxies a demo owner uses
// against a running counterRunnable, wherever it's hosted.
func incrementProxy(r runner.Runner) *remote.Proxy {
	cmds, statuses := hostedEndpoints(r)
	return remote.NewMethodProxy("Increment", counterFactoryName, func(int) int { return 0 }, cmds, statuses, nil, fixedTimeout)
}

func valueProxy(r runner.Runner) *remote.Proxy {
	cmds, statuses := hostedEndpoints(r)
	return remote.NewAttributeProxy("Value", counterFactoryName, cmds, statuses, nil, fixedTimeout)
}

func fixedTimeout() time.Duration { return 5 * time.Second }

// hostedEndpoints extracts the command queue and status buffer a Proxy
// needs to reach the counter from whichever concrete Runner is hosting it.
// Neither Runner shares a live AliveFlag with the owner once the counter
// is process-hosted, so Proxies built here rely on the round-trip timeout
// rather than the local alive check CommandDriven.AliveFlag offers a
// same-process caller.
func hostedEndpoints(r runner.Runner) (*queue.Managed[message.Command], *queue.Buffer[message.Status]) {
	switch v := r.(type) {
	case *runner.ProcessRunner:
		return v.Commands(), v.Statuses()
	case *runner.ThreadRunner:
		cmds, _ := v.Commands()
		statuses, _ := v.Statuses()
		return cmds, statuses
	default:
		return nil, nil
	}
}
