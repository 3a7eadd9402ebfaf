package logging

import (
	"fmt"
	"os"
	"time"
)

// Logger is a named handle bound to one dotted section name. Construct
// with NewLogger; multiple Loggers for the same name are independent but
// consult the same process-wide effective level.
type Logger struct {
	name   string
	fields FieldSet
	exit   func(int)
}

// NewLogger returns a Logger for the given dotted section name.
func NewLogger(name string) *Logger {
	return &Logger{name: name, exit: os.Exit}
}

// WithFields returns a copy of the logger with extra fields attached to
// every subsequent call.
func (l *Logger) WithFields(fields ...Field) *Logger {
	return &Logger{name: l.name, fields: l.fields.With(fields...), exit: l.exit}
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < EffectiveLevel(l.name) {
		return
	}
	process.emit(Record{
		Time:    time.Now(),
		Level:   level,
		Logger:  l.name,
		Message: fmt.Sprintf(format, args...),
		Fields:  l.fields,
	})
}

func (l *Logger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(ERROR, format, args...) }

// Fatal logs at FATAL and then terminates the process.
func (l *Logger) Fatal(format string, args ...any) {
	l.log(FATAL, format, args...)
	l.exit(1)
}

// Level returns the effective level currently in force for this logger's
// section.
func (l *Logger) Level() Level { return EffectiveLevel(l.name) }
