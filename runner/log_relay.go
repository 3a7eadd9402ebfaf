package runner

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/runloop-rt/runloop/logging"
	"github.com/runloop-rt/runloop/queue"
)

// The owner process hosts exactly one log listener scope, started the
// first time any ProcessRunner activates. Children are reconfigured (see
// child.go) to enqueue their records onto this relay's Unix socket instead
// of printing, and the listener here drains the central queue and performs
// the only real output, through the owner's own configuration. A child
// that spawns grandchildren repeats the same arrangement one level down:
// its listener's output printer is itself the enqueue handler installed by
// its parent, so grandchild records still funnel up to the single real
// listener at the top.
var (
	logRelayMu sync.Mutex
	logRelay   *logRelayState
)

type logRelayState struct {
	sockPath string
	central  *queue.LogQueue[logging.Record]
	listener *logging.Listener
}

// ensureLogRelay starts the process-wide log listener scope if it isn't
// running yet and returns the socket path children enqueue to. Failures
// are returned for the caller to print and swallow: the logging relay must
// never take a runner down with it.
func ensureLogRelay() (*logRelayState, error) {
	logRelayMu.Lock()
	defer logRelayMu.Unlock()
	if logRelay != nil {
		return logRelay, nil
	}

	dir, err := os.MkdirTemp("", "runloop-log-relay-")
	if err != nil {
		return nil, err
	}
	sockPath := filepath.Join(dir, "logs.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	central := queue.NewLogQueue(queue.NewIntra[logging.Record]("log-relay:central", 0)).Enter()
	listener := logging.NewListener(central)
	go listener.Run(context.Background())
	go relayAcceptLoop(ln, central)

	logRelay = &logRelayState{sockPath: sockPath, central: central, listener: listener}
	return logRelay, nil
}

// relayAcceptLoop accepts one connection per child process and pumps its
// records into the central queue for the listener to print.
func relayAcceptLoop(ln net.Listener, central *queue.LogQueue[logging.Record]) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			child := queue.NewLogQueue(queue.NewCrossFromConn[logging.Record]("log-relay:child", conn, 64)).Enter()
			defer child.Exit()
			for {
				rec, ok := child.Get(-1)
				if !ok {
					return
				}
				central.Put(rec)
			}
		}(conn)
	}
}
