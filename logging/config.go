package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the YAML-driven description of the logging setup: a root
// level/handler plus per-logger-name section overrides, each of which
// cascades to every logger whose name has that section as a dotted prefix.
type Config struct {
	Root     SectionConfig            `yaml:"root"`
	Sections map[string]SectionConfig `yaml:"sections"`
	Handler  HandlerConfig            `yaml:"handler"`
}

// SectionConfig is the level configured for one dotted-prefix section.
type SectionConfig struct {
	Level string `yaml:"level"`
}

// HandlerConfig picks and configures the single process-wide output
// handler. Kind is "console" or "json"; Path, if set, redirects output to a
// file instead of stdout.
type HandlerConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

// LoadConfig reads and parses a YAML logging configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("logging: reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("logging: parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// resolvedLevels flattens Root/Sections into the Level values the registry
// actually uses, validating every configured level string up front rather
// than at first use.
func (c *Config) resolvedLevels() (root Level, sections map[string]Level, err error) {
	root = WARN
	if c.Root.Level != "" {
		root, err = LevelFromString(c.Root.Level)
		if err != nil {
			return 0, nil, err
		}
	}
	sections = make(map[string]Level, len(c.Sections))
	for name, sec := range c.Sections {
		lvl, err := LevelFromString(sec.Level)
		if err != nil {
			return 0, nil, fmt.Errorf("logging: section %q: %w", name, err)
		}
		sections[name] = lvl
	}
	return root, sections, nil
}

// printer builds the Printer this config describes. A failure to create the
// handler file's directory is printed to stderr and swallowed - the logging
// subsystem may itself be the victim of whatever broke, so it must not take
// the program down with it.
func (c *Config) printer() (Printer, error) {
	var w = os.Stdout
	if c.Handler.Path != "" {
		if dir := filepath.Dir(c.Handler.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "logging: creating log directory %s: %v\n", dir, err)
				return newPrinterFor(c.Handler.Kind, w), nil
			}
		}
		f, err := os.OpenFile(c.Handler.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: opening handler file %s: %w", c.Handler.Path, err)
		}
		return newPrinterFor(c.Handler.Kind, f), nil
	}
	return newPrinterFor(c.Handler.Kind, w), nil
}

func newPrinterFor(kind string, w *os.File) Printer {
	if kind == "json" {
		return NewJSONPrinter(w)
	}
	return NewTextPrinter(w)
}
