package logging

import (
	"bytes"
	"fmt"
	"time"
)

// Field is one structured key/value pair attached to a log record.
type Field struct {
	key    string
	value  any
	format string
}

// Key returns the field's name.
func (f Field) Key() string { return f.key }

// String renders the field's value using its configured format verb.
func (f Field) String() string { return fmt.Sprintf(f.format, f.value) }

// GobEncode flattens the field to its key and rendered value, so a Record
// survives the gob-framed cross-process log queue despite Field's
// unexported fields. The format verb is already applied by the time the
// field crosses the boundary; the listener only ever prints it.
func (f Field) GobEncode() ([]byte, error) {
	return []byte(f.key + "\x00" + f.String()), nil
}

// GobDecode restores a field flattened by GobEncode.
func (f *Field) GobDecode(data []byte) error {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return fmt.Errorf("logging: malformed field encoding")
	}
	f.key = string(data[:i])
	f.value = string(data[i+1:])
	f.format = "%s"
	return nil
}

// Str builds a string-valued field.
func Str(key, value string) Field { return Field{key: key, value: value, format: "%s"} }

// Int builds an integer-valued field.
func Int(key string, value int) Field { return Field{key: key, value: value, format: "%d"} }

// Duration builds a duration-valued field.
func Duration(key string, value time.Duration) Field { return Field{key: key, value: value, format: "%v"} }

// Err builds a field carrying an error's message.
func Err(err error) Field {
	if err == nil {
		return Field{key: "error", value: "<nil>", format: "%s"}
	}
	return Field{key: "error", value: err.Error(), format: "%s"}
}

// FieldSet is an ordered collection of Fields attached to a logger or a
// single call.
type FieldSet []Field

// With returns a new FieldSet with extra appended, leaving the receiver
// unmodified.
func (fs FieldSet) With(extra ...Field) FieldSet {
	out := make(FieldSet, 0, len(fs)+len(extra))
	out = append(out, fs...)
	out = append(out, extra...)
	return out
}

// Keys returns every key present, for RequireFields validation.
func (fs FieldSet) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(fs))
	for _, f := range fs {
		keys[f.key] = struct{}{}
	}
	return keys
}
