// Package attrs resolves the `runloop` struct tag that marks a field as
// either copied into a freshly started scope or left to its zero value
// there. It is deliberately thin: environment only needs enough of it to
// decide, field by field, what crosses into a new goroutine or process.
package attrs

import "reflect"

// Mode is how a tagged field behaves when its owning Runnable is handed to
// a fresh scope.
type Mode int

const (
	// CopyIn carries the field's current value into the new scope, the
	// default for any field without a `runloop` tag.
	CopyIn Mode = iota
	// Local resets the field to its zero value in the new scope - for
	// state (file descriptors, mutexes, os/exec handles) that can't
	// cross a goroutine-vs-process boundary meaningfully.
	Local
)

const tagKey = "runloop"

// ModeOf reports the Mode requested by field's `runloop` struct tag,
// defaulting to CopyIn when the field is untagged or the tag value is
// unrecognized.
func ModeOf(field reflect.StructField) Mode {
	switch field.Tag.Get(tagKey) {
	case "local":
		return Local
	default:
		return CopyIn
	}
}

// ResetLocal zero-fills every field of v (a pointer to a struct) tagged
// `runloop:"local"`. A ThreadRunner shares its target directly so nothing
// needs resetting, but code that clones a Runnable's configuration before
// handing it to a fresh scope calls this to drop scope-local state.
func ResetLocal(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !rv.Field(i).CanSet() {
			continue
		}
		if ModeOf(f) == Local {
			rv.Field(i).Set(reflect.Zero(f.Type))
		}
	}
}
