package runner

import (
	"fmt"
	"sync"

	"github.com/runloop-rt/runloop/runnable"
)

// Factory constructs a fresh Runnable. Registered factories are how a
// ProcessRunner's child process reconstructs the Runnable to host, since a
// Go closure or struct value can't itself cross a process boundary the way
// it crosses a goroutine boundary.
type Factory func() runnable.Runnable

var (
	factoriesMu sync.Mutex
	factories   = map[string]Factory{}
)

// RegisterFactory makes name available to ProcessRunner's self-reexec child
// mode. Call it from an init() in the same package that defines the
// Runnable, exactly as you'd register a driver with database/sql.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("runner: factory %q already registered", name))
	}
	factories[name] = f
}

func lookupFactory(name string) (Factory, bool) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	f, ok := factories[name]
	return f, ok
}
