package capture

import (
	"fmt"
	"reflect"
)

// maxSerializeDepth bounds how deeply Sanitize descends into nested
// structures before truncating, per the design notes' serialization
// depth-cap (spec Design Notes §9): captured call payloads can otherwise
// carry unbounded nesting (a poem inside a constraint inside a quality
// inside a refinement result) that would make the capture log unusably
// large.
const maxSerializeDepth = 10

// Sanitize returns a depth-capped copy of v suitable for JSON encoding in
// a CapturedCall. Values deeper than maxSerializeDepth are replaced with a
// placeholder string rather than omitted, so the cap is visible in the
// captured data instead of silently losing information.
func Sanitize(v any) any {
	return sanitize(reflect.ValueOf(v), 0)
}

func sanitize(v reflect.Value, depth int) any {
	if !v.IsValid() {
		return nil
	}
	if depth >= maxSerializeDepth {
		return "<max depth reached>"
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return sanitize(v.Elem(), depth)
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			out[f.Name] = sanitize(v.Field(i), depth+1)
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[keyString(iter.Key())] = sanitize(iter.Value(), depth+1)
		}
		return out
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = sanitize(v.Index(i), depth+1)
		}
		return out
	default:
		if !v.CanInterface() {
			return nil
		}
		return v.Interface()
	}
}

func keyString(v reflect.Value) string {
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}
