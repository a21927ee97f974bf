// Package assert panics on programmer errors, it is meant for constructor arguments that can
// only be wrong because of a wiring mistake.
package assert

import "reflect"

// NotNil panics if value is nil. A nil pointer, map, slice, func or chan stored in an interface
// counts as nil too.
func NotNil(value any) {
	if isNil(value) {
		panic("expected value to be not nil")
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
