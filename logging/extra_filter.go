package logging

import "fmt"

// RequireFields returns a filter that rejects any Record missing one of the
// named fields, surfacing a clear local error instead of silently emitting
// a record a downstream consumer expected to be able to key on.
func RequireFields(names ...string) func(Record) error {
	return func(r Record) error {
		present := r.Fields.Keys()
		for _, n := range names {
			if _, ok := present[n]; !ok {
				return fmt.Errorf("logging: record %q missing required field %q", r.Message, n)
			}
		}
		return nil
	}
}
