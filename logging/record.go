package logging

import "time"

// Record is a single emitted log line: the unit the log queue carries and
// every Printer renders. A plain struct of gob-encodable fields, so it
// survives the cross-process log queue unchanged.
type Record struct {
	Time    time.Time
	Level   Level
	Logger  string
	Message string
	Fields  FieldSet
}
