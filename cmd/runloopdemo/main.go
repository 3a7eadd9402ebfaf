// Command runloopdemo exercises both hosting scopes end to end: it starts
// a counter runnable as a goroutine, then again as a self-reexecuted child
// process, driving each through the identical remote.Proxy calls, and
// prints what each reports. It exists purely as a runnable demonstration -
// there is no flag parsing or daemonizing surface.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/runloop-rt/runloop/environment"
	"github.com/runloop-rt/runloop/logging"
	"github.com/runloop-rt/runloop/runner"
)

func main() {
	// A self-reexecuted child process lands here first; it never reaches
	// the demo body below.
	if runner.RunChildIfRequested() {
		return
	}

	log := logging.NewLogger("runloopdemo")
	logging.OverrideRoot(logging.INFO)
	ctx := context.Background()

	fmt.Println("--- thread-hosted counter ---")
	if err := runThreadDemo(ctx, log); err != nil {
		fmt.Fprintln(os.Stderr, "thread demo:", err)
		os.Exit(1)
	}

	fmt.Println("--- process-hosted counter ---")
	if err := runProcessDemo(ctx, log); err != nil {
		fmt.Fprintln(os.Stderr, "process demo:", err)
		os.Exit(1)
	}
}

func runThreadDemo(ctx context.Context, log *logging.Logger) error {
	env := environment.NewThreadEnvironment()
	commands := env.NewCommandQueue("thread-counter:commands")
	statuses := env.NewStatusBuffer("thread-counter:statuses")
	target := newCounterRunnable(commands, statuses)

	r, err := environment.StartRunner(ctx, env, "thread-counter", environment.RunnableSpec{Runnable: target}, 2*time.Second)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Stop(2 * time.Second); err != nil {
			log.Error("stopping thread-hosted counter: %v", err)
		}
	}()

	return driveCounter(ctx, log, r)
}

func runProcessDemo(ctx context.Context, log *logging.Logger) error {
	env := environment.NewProcessEnvironment()
	r, err := environment.StartRunner(ctx, env, "process-counter", environment.RunnableSpec{FactoryName: counterFactoryName}, 5*time.Second)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Stop(2 * time.Second); err != nil {
			log.Error("stopping process-hosted counter: %v", err)
		}
	}()

	return driveCounter(ctx, log, r)
}

func driveCounter(ctx context.Context, log *logging.Logger, r runner.Runner) error {
	inc := incrementProxy(r)
	get := valueProxy(r)

	for i := 0; i < 3; i++ {
		result, err := inc.Call(ctx, 1)
		if err != nil {
			return err
		}
		log.Info("%s: Increment -> %v", r.Name(), result)
	}

	value, err := get.Get(ctx)
	if err != nil {
		return err
	}
	log.Info("%s: Value -> %v", r.Name(), value)
	return nil
}
