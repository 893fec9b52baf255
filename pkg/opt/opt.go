// Package opt provides an explicit presence type for values that may be
// "not yet known", as distinct from known-and-empty.
package opt

import (
	"bytes"
	"encoding/json"
)

// Value holds a T that is either set or unset.
type Value[T any] struct {
	v  T
	ok bool
}

// Some returns a set Value.
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None returns an unset Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// FromPtr returns Some(*p), or None when p is nil.
func FromPtr[T any](p *T) Value[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

// IsSet reports whether a value is present.
func (o Value[T]) IsSet() bool { return o.ok }

// Get returns the value and whether it is present.
func (o Value[T]) Get() (T, bool) { return o.v, o.ok }

// MustGet returns the value, panicking when unset.
func (o Value[T]) MustGet() T {
	if !o.ok {
		panic("opt: value not set")
	}
	return o.v
}

// Or returns the value, or fallback when unset.
func (o Value[T]) Or(fallback T) T {
	if o.ok {
		return o.v
	}
	return fallback
}

// Ptr returns a pointer to a copy of the value, or nil.
func (o Value[T]) Ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.v
	return &v
}

var null = []byte("null")

// MarshalJSON encodes an unset value as null.
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return null, nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON decodes null as unset.
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), null) {
		*o = Value[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Equal reports whether a and b are both unset, or both set to equal values.
func Equal[T comparable](a, b Value[T]) bool {
	if a.ok != b.ok {
		return false
	}
	return !a.ok || a.v == b.v
}
