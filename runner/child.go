package runner

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/buildkite/roko"

	"github.com/runloop-rt/runloop/logging"
	"github.com/runloop-rt/runloop/message"
	"github.com/runloop-rt/runloop/queue"
	"github.com/runloop-rt/runloop/tracefail"
)

// Environment variables a self-reexec child process reads to find its
// factory and the Unix sockets the owner process is listening on. A handful
// of environment variables are all a reexecuted process needs to find its
// way back into the right code path.
const (
	childFactoryEnv    = "RUNLOOP_CHILD_FACTORY"
	childCmdSockEnv    = "RUNLOOP_CHILD_CMD_SOCK"
	childStatusSockEnv = "RUNLOOP_CHILD_STATUS_SOCK"
	childLogSockEnv    = "RUNLOOP_CHILD_LOG_SOCK"
	childLogHistoryEnv = "RUNLOOP_CHILD_LOG_HISTORY"
)

// dialRetryTimeout bounds how long a child process retries connecting back
// to the owner's listening sockets, in case the owner hasn't called Accept
// yet.
const dialRetryTimeout = 5 * time.Second

// RunChildIfRequested checks whether this process was launched by a
// ProcessRunner to host a Runnable, and if so, runs it to completion and
// ends the process with os.Exit (status 0 on success, 1 on failure) without
// returning. A program's main() should call this before anything else;
// ordinary invocations (the environment variables unset) return false
// immediately so normal startup proceeds.
func RunChildIfRequested() bool {
	factoryName := os.Getenv(childFactoryEnv)
	if factoryName == "" {
		return false
	}

	factory, ok := lookupFactory(factoryName)
	if !ok {
		fmt.Fprintf(os.Stderr, "runner: no factory registered under %q\n", factoryName)
		os.Exit(1)
	}

	target := factory()

	// os.Exit below skips deferred calls, so the log queue's scope is
	// closed explicitly on both exit paths.
	logCleanup := configureChildLogging()

	cmdConn, err := dialRetry(os.Getenv(childCmdSockEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "runner: child dial command socket: %v\n", err)
		os.Exit(1)
	}
	statusConn, err := dialRetry(os.Getenv(childStatusSockEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "runner: child dial status socket: %v\n", err)
		os.Exit(1)
	}

	crossCmds := queue.NewCrossFromConn[message.Command](factoryName+":commands:cross", cmdConn, 64).Enter()
	crossStatuses := queue.NewCrossFromConn[message.Status](factoryName+":statuses:cross", statusConn, 64).Enter()
	defer crossCmds.Exit()
	defer crossStatuses.Exit()

	if bridgeable, ok := target.(commandHosted); ok {
		go bridgeCommandsIn(crossCmds, bridgeable.Commands())
		go bridgeStatusesOut(bridgeable.Statuses(), crossStatuses)
	}

	err = target.Execute(context.Background())
	if err != nil {
		failure := tracefail.New(err, 0)
		// Sent over the status control connection, not just stderr, so
		// the owner's ProcessRunner can transport the message and
		// traceback across the process boundary - the exit code alone
		// only tells the owner that something failed, never what or
		// where.
		_ = crossStatuses.Put(message.RunnableFailed(&message.Failure{
			Message:           failure.Message,
			RenderedTraceback: failure.OriginTraceback,
		}))
		fmt.Fprintf(os.Stderr, "runner: child runnable %s failed: %v\n", target.Name(), err)
		crossStatuses.Exit()
		logCleanup()
		os.Exit(1)
	}
	crossCmds.Exit()
	crossStatuses.Exit()
	logCleanup()
	os.Exit(0)
	return true
}

// configureChildLogging rewires this child process's logging so every
// record it emits is enqueued to the owner's log socket instead of printed
// locally. The owner's configuration history is replayed first, so this
// scope's effective levels match the owner's and sub-level records are
// rejected here, before they are ever queued. If the owner passed no log
// socket, or anything fails, the child keeps its default local printer -
// printed, never fatal.
func configureChildLogging() func() {
	sock := os.Getenv(childLogSockEnv)
	if sock == "" {
		return func() {}
	}

	if historyPath := os.Getenv(childLogHistoryEnv); historyPath != "" {
		history, err := logging.DecodeHistoryFile(historyPath)
		if err == nil {
			err = logging.RestoreHistory(history)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "runner: child replaying log history: %v\n", err)
		}
	}

	conn, err := dialRetry(sock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runner: child dial log socket: %v\n", err)
		return func() {}
	}
	lq := queue.NewLogQueue(queue.NewCrossFromConn[logging.Record]("child:logs", conn, 64)).Enter()
	logging.SetPrinter(logging.NewQueuePrinter(lq))
	return lq.Exit
}

// commandHosted is implemented by *runnable.CommandDriven. A ProcessRunner
// detects it to bridge the cross-process sockets into the runnable's own
// local command queue/status buffer, so CommandDriven's Execute loop never
// needs to know whether it ended up hosted in a goroutine or a process.
type commandHosted interface {
	Commands() *queue.Managed[message.Command]
	Statuses() *queue.Buffer[message.Status]
}

func bridgeCommandsIn(cross *queue.Managed[message.Command], local *queue.Managed[message.Command]) {
	for {
		cmd, ok := cross.Get(-1)
		if !ok {
			return
		}
		if err := local.Put(cmd); err != nil {
			return
		}
	}
}

func bridgeStatusesOut(local *queue.Buffer[message.Status], cross *queue.Managed[message.Status]) {
	sub := local.Subscribe("process-bridge")
	defer sub.Close()
	for {
		status, ok := sub.Next(-1)
		if !ok {
			return
		}
		if err := cross.Put(status); err != nil {
			return
		}
	}
}

// dialRetry dials path, retrying on a constant interval until it succeeds
// or the deadline expires - the owner's listener may not have called Accept
// yet by the time this child process starts.
func dialRetry(path string) (net.Conn, error) {
	if path == "" {
		return nil, fmt.Errorf("empty socket path")
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialRetryTimeout)
	defer cancel()
	r := roko.NewRetrier(
		roko.WithMaxAttempts(50),
		roko.WithStrategy(roko.Constant(100*time.Millisecond)),
	)
	return roko.DoFunc(ctx, r, func(*roko.Retrier) (net.Conn, error) {
		return net.Dial("unix", path)
	})
}
