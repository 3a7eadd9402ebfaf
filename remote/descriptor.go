package remote

import (
	"fmt"
	"reflect"

	runloopErrors "github.com/runloop-rt/runloop/errors"
)

// argSpec is a parameter descriptor reified once, at proxy-creation time,
// from the target method's Go function type - never by reflecting on every
// call.
type argSpec struct {
	name     string
	min, max int      // max == -1 means variadic / unbounded
	params   []string // declared parameter names, when the caller supplied them
}

func describe[F any](name string, fn F) argSpec {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		panic(fmt.Sprintf("remote: %q is not backed by a function value", name))
	}
	n := t.NumIn()
	if t.IsVariadic() {
		return argSpec{name: name, min: n - 1, max: -1}
	}
	return argSpec{name: name, min: n, max: n}
}

// validate fails locally, before anything is placed on the wire, if args
// doesn't match the method's declared shape - a signature mismatch is never
// dispatched.
func (s argSpec) validate(args []any) error {
	n := len(args)
	if n < s.min {
		// Reflection can't recover Go parameter names, so the by-name
		// diagnostic is only available when the proxy was built with
		// WithParamNames.
		if n < len(s.params) {
			return runloopErrors.NewProgrammingError("remote.Call",
				"%s: missing a required argument: '%s'", s.name, s.params[n])
		}
		return runloopErrors.NewProgrammingError("remote.Call",
			"%s: missing a required argument, expected at least %d argument(s), got %d", s.name, s.min, n)
	}
	if s.max >= 0 && n > s.max {
		return runloopErrors.NewProgrammingError("remote.Call",
			"%s: expected at most %d argument(s), got %d", s.name, s.max, n)
	}
	return nil
}
