package logging

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"sync"
)

// actionKind discriminates the kinds of configuration action History
// replays.
type actionKind int

const (
	actionInitFromFile actionKind = iota
	actionOverrideGlobalLevel
	actionOverrideSections
	actionOverrideRoot
	actionReset
)

type historyAction struct {
	kind             actionKind
	configPath       string
	globalLevel      Level
	sectionOverrides map[string]Level
	rootLevel        Level
}

// History is the ordered log of configuration actions applied to the
// process-wide registry. A child process inherits its parent's History at
// reexec time and replays it against its own registry, rather than
// inheriting live state directly.
type History struct {
	mu      sync.Mutex
	actions []historyAction
}

func (h *History) record(a historyAction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = append(h.actions, a)
}

// Clear discards all recorded actions (used by Reset).
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = nil
}

// Copy returns an independent snapshot of the current history, suitable for
// handing to a child process or for later restoration.
func (h *History) Copy() *History {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := &History{actions: make([]historyAction, len(h.actions))}
	copy(out.actions, h.actions)
	return out
}

// historyWireAction is the gob shape of one recorded action; historyAction
// itself keeps its fields unexported.
type historyWireAction struct {
	Kind             int
	ConfigPath       string
	GlobalLevel      Level
	SectionOverrides map[string]Level
	RootLevel        Level
}

// GobEncode flattens the recorded actions so a History can ride the child
// environment to a freshly reexecuted process.
func (h *History) GobEncode() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	wire := make([]historyWireAction, len(h.actions))
	for i, a := range h.actions {
		wire[i] = historyWireAction{
			Kind:             int(a.kind),
			ConfigPath:       a.configPath,
			GlobalLevel:      a.globalLevel,
			SectionOverrides: a.sectionOverrides,
			RootLevel:        a.rootLevel,
		}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores a History flattened by GobEncode.
func (h *History) GobDecode(data []byte) error {
	var wire []historyWireAction
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = make([]historyAction, len(wire))
	for i, a := range wire {
		h.actions[i] = historyAction{
			kind:             actionKind(a.Kind),
			configPath:       a.ConfigPath,
			globalLevel:      a.GlobalLevel,
			sectionOverrides: a.SectionOverrides,
			rootLevel:        a.RootLevel,
		}
	}
	return nil
}

// EncodeHistoryFile writes h to path, for handing to a child process.
func EncodeHistoryFile(h *History, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("logging: writing history %s: %w", path, err)
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(h)
}

// DecodeHistoryFile reads a History written by EncodeHistoryFile.
func DecodeHistoryFile(path string) (*History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logging: reading history %s: %w", path, err)
	}
	defer f.Close()
	h := &History{}
	if err := gob.NewDecoder(f).Decode(h); err != nil {
		return nil, fmt.Errorf("logging: decoding history %s: %w", path, err)
	}
	return h, nil
}

// Replay reapplies every recorded action, in order, against a target
// Registry.
func (h *History) Replay(target *Registry) error {
	h.mu.Lock()
	actions := make([]historyAction, len(h.actions))
	copy(actions, h.actions)
	h.mu.Unlock()

	for _, a := range actions {
		var err error
		switch a.kind {
		case actionInitFromFile:
			err = target.initFromFile(a.configPath, false)
		case actionOverrideGlobalLevel:
			target.overrideGlobalLevel(a.globalLevel, false)
		case actionOverrideSections:
			target.overrideSections(a.sectionOverrides, false)
		case actionOverrideRoot:
			target.overrideRoot(a.rootLevel, false)
		case actionReset:
			target.resetImpl(false)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
