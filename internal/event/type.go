// Package event holds the typed event channels that sagas read from and
// write to, plus the rules for what may travel through them.
//
// A value type is its own event identity: every distinct Go type gets exactly
// one channel in a World, created the first time a handler registers for it.
package event

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

// Type identifies an event type. The zero Type identifies nothing.
type Type struct {
	rt reflect.Type
}

// TypeOf returns the Type for T.
func TypeOf[T any]() Type {
	return Type{rt: reflect.TypeFor[T]()}
}

// TypeFor wraps a reflect.Type.
func TypeFor(rt reflect.Type) Type {
	return Type{rt: rt}
}

// Reflect returns the underlying reflect.Type, or nil for the zero Type.
func (t Type) Reflect() reflect.Type {
	return t.rt
}

// IsZero reports whether t identifies no type.
func (t Type) IsZero() bool {
	return t.rt == nil
}

// String returns the package-qualified type name, e.g. "demo.Damage".
func (t Type) String() string {
	if t.rt == nil {
		return "<nil>"
	}
	return t.rt.String()
}

// ErrInvalidType is wrapped by every error returned from Validate.
var ErrInvalidType = errors.New("invalid event type")

// Validate reports whether values of rt may be used as events.
//
// Events are plain values: a pointer, func, channel or interface type is
// rejected outright, and funcs or channels are rejected anywhere inside a
// struct or array. A type that holds slices, maps, pointers or interfaces
// somewhere in its structure is accepted only when it implements Clone()
// returning its own type, so that every handler can receive an independent
// copy. time.Time is treated as a plain value.
func Validate(rt reflect.Type) error {
	if rt == nil {
		return fmt.Errorf("%w: nil type", ErrInvalidType)
	}

	switch rt.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Interface:
		return fmt.Errorf("%w: %s is a %s", ErrInvalidType, rt, rt.Kind())
	}

	if field, ok := forbiddenField(rt, make(map[reflect.Type]bool)); ok {
		return fmt.Errorf("%w: %s holds %s", ErrInvalidType, rt, field)
	}

	if holdsReference(rt, make(map[reflect.Type]bool)) && !isCloner(rt) {
		return fmt.Errorf("%w: %s holds references but has no Clone() %s method", ErrInvalidType, rt, rt)
	}

	return nil
}

var plainValues = map[reflect.Type]bool{
	reflect.TypeFor[time.Time](): true,
}

// forbiddenField finds a func, chan or unsafe pointer anywhere inside rt.
func forbiddenField(rt reflect.Type, seen map[reflect.Type]bool) (string, bool) {
	if seen[rt] || plainValues[rt] {
		return "", false
	}
	seen[rt] = true

	switch rt.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("a %s (%s)", rt.Kind(), rt), true
	case reflect.Array, reflect.Slice, reflect.Pointer:
		return forbiddenField(rt.Elem(), seen)
	case reflect.Map:
		if desc, ok := forbiddenField(rt.Key(), seen); ok {
			return desc, true
		}
		return forbiddenField(rt.Elem(), seen)
	case reflect.Struct:
		for i := range rt.NumField() {
			f := rt.Field(i)
			if desc, ok := forbiddenField(f.Type, seen); ok {
				return fmt.Sprintf("field %s: %s", f.Name, desc), true
			}
		}
	}
	return "", false
}

func holdsReference(rt reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[rt] || plainValues[rt] {
		return false
	}
	seen[rt] = true

	switch rt.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return true
	case reflect.Array:
		return holdsReference(rt.Elem(), seen)
	case reflect.Struct:
		for i := range rt.NumField() {
			if holdsReference(rt.Field(i).Type, seen) {
				return true
			}
		}
	}
	return false
}

func isCloner(rt reflect.Type) bool {
	m, ok := rt.MethodByName("Clone")
	if !ok {
		return false
	}
	// Method.Type includes the receiver as the first argument.
	return m.Type.NumIn() == 1 && m.Type.NumOut() == 1 && m.Type.Out(0) == rt
}

// MarshalText encodes t as its type name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
