package runner

import "reflect"

// defaultName derives a runner's display name when the caller doesn't
// supply one explicitly: "<kind> of <runnable type name>".
func defaultName(kind string, target any) string {
	t := reflect.TypeOf(target)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := "runnable"
	if t != nil {
		name = t.Name()
	}
	return kind + " of " + name
}
