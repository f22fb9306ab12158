package history

import "reflect"

// Option configures a History.
type Option[T any] func(*History[T])

// WithEqual sets the function deciding whether a write is redundant.
func WithEqual[T any](equal func(a, b T) bool) Option[T] {
	return func(h *History[T]) {
		if equal != nil {
			h.equal = equal
		}
	}
}

// WithMaxEntries caps the undo stack. Zero means unbounded.
func WithMaxEntries[T any](max int) Option[T] {
	return func(h *History[T]) {
		if max > 0 {
			h.maxEntries = max
		}
	}
}

// identical reports whether a and b are the same value in the sense of
// reference identity. Slices, maps and pointers are compared by address;
// structs and arrays element by element.
func identical[T any](a, b T) bool {
	va := reflect.ValueOf(&a).Elem()
	vb := reflect.ValueOf(&b).Elem()
	return sameValue(va, vb)
}

func sameValue(va, vb reflect.Value) bool {
	switch va.Kind() {
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		ea, eb := va.Elem(), vb.Elem()
		if ea.Type() != eb.Type() {
			return false
		}
		return sameValue(ea, eb)
	case reflect.Slice:
		return va.Len() == vb.Len() && va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !sameValue(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < va.Len(); i++ {
			if !sameValue(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true
	}
	return va.Equal(vb)
}
