package logging

import (
	"os"
	"strings"
	"sync"
)

func defaultWriter() *os.File { return os.Stdout }

// Registry is the process-wide logging configuration: the root level, the
// per-section overrides, and the single Printer everything ultimately
// renders through. One process-wide instance exists (see the package-level
// functions below); tests construct their own via newRegistry to stay
// isolated.
//
// A single lock guards the root level, the section-override map, and the
// handler currently in effect. Go's mutex isn't reentrant, so internal
// methods never call back into a locking public method.
type Registry struct {
	mu       sync.Mutex
	root     Level
	sections map[string]Level
	printer  Printer
	history  History
}

func newRegistry() *Registry {
	return &Registry{
		root:     WARN,
		sections: map[string]Level{},
		printer:  NewTextPrinter(defaultWriter()),
	}
}

var process = newRegistry()

// InitFromFile loads and applies a YAML Config file, replacing the current
// configuration.
func InitFromFile(path string) error {
	return process.initFromFile(path, true)
}

func (r *Registry) initFromFile(path string, record bool) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	root, sections, err := cfg.resolvedLevels()
	if err != nil {
		return err
	}
	printer, err := cfg.printer()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.root = root
	r.sections = sections
	r.printer = printer
	r.mu.Unlock()

	if record {
		r.history.record(historyAction{kind: actionInitFromFile, configPath: path})
	}
	return nil
}

// OverrideGlobalLevel sets every currently-known section, plus root, to
// level - a blunt "turn everything up" knob for live debugging.
func OverrideGlobalLevel(level Level) { process.overrideGlobalLevel(level, true) }

func (r *Registry) overrideGlobalLevel(level Level, record bool) {
	r.mu.Lock()
	r.root = level
	for name := range r.sections {
		r.sections[name] = level
	}
	r.mu.Unlock()

	if record {
		r.history.record(historyAction{kind: actionOverrideGlobalLevel, globalLevel: level})
	}
}

// OverrideSections merges section-level overrides into the current
// configuration; each key is a dotted-prefix section name exactly as it
// would appear in a Config's Sections map.
func OverrideSections(overrides map[string]Level) { process.overrideSections(overrides, true) }

func (r *Registry) overrideSections(overrides map[string]Level, record bool) {
	r.mu.Lock()
	for name, lvl := range overrides {
		r.sections[name] = lvl
	}
	r.mu.Unlock()

	if record {
		r.history.record(historyAction{kind: actionOverrideSections, sectionOverrides: overrides})
	}
}

// OverrideRoot sets only the root level, leaving section overrides intact.
func OverrideRoot(level Level) { process.overrideRoot(level, true) }

func (r *Registry) overrideRoot(level Level, record bool) {
	r.mu.Lock()
	r.root = level
	r.mu.Unlock()

	if record {
		r.history.record(historyAction{kind: actionOverrideRoot, rootLevel: level})
	}
}

// Reset restores the WARN root level and the default text printer, and
// clears all section overrides and history. Intended for test teardown.
func Reset() { process.resetImpl(true) }

func (r *Registry) resetImpl(record bool) {
	r.mu.Lock()
	r.root = WARN
	r.sections = map[string]Level{}
	r.printer = NewTextPrinter(defaultWriter())
	r.mu.Unlock()

	if record {
		r.history.Clear()
	}
}

// EffectiveLevel resolves the level that applies to logger name: the
// longest configured section whose name is a dotted prefix of name, or
// root if none matches.
func EffectiveLevel(name string) Level { return process.effectiveLevel(name) }

func (r *Registry) effectiveLevel(name string) Level {
	r.mu.Lock()
	defer r.mu.Unlock()

	best := ""
	bestLevel := r.root
	for section, lvl := range r.sections {
		if section == name || strings.HasPrefix(name, section+".") {
			if len(section) > len(best) {
				best = section
				bestLevel = lvl
			}
		}
	}
	return bestLevel
}

func (r *Registry) emit(rec Record) {
	r.mu.Lock()
	p := r.printer
	r.mu.Unlock()
	if p != nil {
		p.Print(rec)
	}
}

// SetPrinter installs p as the process-wide output sink directly, bypassing
// YAML configuration - used by a child process to route its records onto
// the log queue through a QueuePrinter instead of printing inline.
func SetPrinter(p Printer) { process.setPrinter(p) }

func (r *Registry) setPrinter(p Printer) {
	r.mu.Lock()
	r.printer = p
	r.mu.Unlock()
}

// CurrentHistory returns a snapshot of the process-wide configuration
// history, for handing to a child process.
func CurrentHistory() *History { return process.history.Copy() }

// RestoreHistory replays a parent's History against this process's
// registry - the child-process bootstrap path.
func RestoreHistory(h *History) error {
	process.resetImpl(false)
	return h.Replay(process)
}
