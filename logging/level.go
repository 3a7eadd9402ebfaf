// Package logging implements the cross-process logging relay: a Level
// hierarchy, a YAML-driven Config describing handlers/loggers/root with
// prefix-cascading overrides, a replayable History of configuration
// actions, and a single Listener scope that does real output while every
// other scope only enqueues onto the log queue.
package logging

import (
	"fmt"
	"strings"
)

// Level values are spaced out so NOTSET compares below every real level.
// The level that applies to a logger is resolved by EffectiveLevel: the
// longest configured section that is a dotted prefix of its name, else root.
type Level int

const (
	NOTSET Level = 0
	DEBUG  Level = 10
	INFO   Level = 20
	WARN   Level = 30
	ERROR  Level = 40
	FATAL  Level = 50
)

var levelNames = map[Level]string{
	NOTSET: "NOTSET",
	DEBUG:  "DEBUG",
	INFO:   "INFO",
	WARN:   "WARN",
	ERROR:  "ERROR",
	FATAL:  "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// LevelFromString parses a level name case-insensitively. "warning" is
// accepted as an alias of "warn".
func LevelFromString(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "notset", "":
		return NOTSET, nil
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal", "critical":
		return FATAL, nil
	default:
		return NOTSET, fmt.Errorf("logging: invalid level %q", s)
	}
}
