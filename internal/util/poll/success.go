package poll

import "reflect"

// Truthy treats false, nil, zero numbers and empty strings, slices and maps
// as "not yet". It is the default policy.
func Truthy[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	default:
		return !rv.IsZero()
	}
}

// NonNil accepts every value except nil pointers, interfaces, maps, slices,
// channels and funcs. Use it when zero counts or empty strings are valid
// results.
func NonNil[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return !rv.IsNil()
	default:
		return true
	}
}

// Always accepts any value returned without an error.
func Always[T any](T) bool {
	return true
}
