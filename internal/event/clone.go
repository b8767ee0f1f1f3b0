package event

// Cloner is implemented by event types that carry slices or maps.
type Cloner[T any] interface {
	Clone() T
}

// Clone returns an independent copy of v. Types without reference fields
// are copied by assignment.
func Clone[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}
