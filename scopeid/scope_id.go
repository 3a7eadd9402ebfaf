// Package scopeid identifies the scope (goroutine or OS process) in which
// code is currently executing. It lets tests and diagnostics assert that a
// remote call really ran inside the hosted scope rather than the owner's.
package scopeid

import (
	"fmt"
	"os"
	"sync/atomic"
)

// ID identifies a single hosted or owner scope: a process, and within that
// process, a sequence number handed out per goroutine-scope that claims one
// (a ThreadRunner's hosted goroutine, or the owning goroutine itself).
type ID struct {
	PID int
	Seq uint64
}

func (i ID) String() string {
	return fmt.Sprintf("pid:%d/seq:%d", i.PID, i.Seq)
}

// Equal reports whether two scope IDs refer to the same scope.
func (i ID) Equal(other ID) bool {
	return i.PID == other.PID && i.Seq == other.Seq
}

var seq uint64

// New allocates a fresh scope ID for the current process.
func New() ID {
	return ID{
		PID: os.Getpid(),
		Seq: atomic.AddUint64(&seq, 1),
	}
}

// Owner is the well-known scope ID of whichever goroutine first imports this
// package in a given process - used as the default "outside scope" id before
// any runner has allocated its own.
var Owner = New()
