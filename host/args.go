// Package host is the glue between a host's value representation and the
// dispatcher: argument access, literal parsing and the result slot.
package host

import (
	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/errors"
)

// Args gives positional access to the values supplied to a call.
type Args interface {
	Len() int
	At(i int) (dyncall.Value, error)
}

// Values is an Args backed by a slice.
type Values []dyncall.Value

func (v Values) Len() int { return len(v) }

func (v Values) At(i int) (dyncall.Value, error) {
	if i < 0 || i >= len(v) {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Path(errors.ArgPath(i)...).
			Detail("index out of range [0,%d)", len(v)).
			Build()
	}
	if v[i] == nil {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Path(errors.ArgPath(i)...).
			Detail("missing value").
			Build()
	}
	return v[i], nil
}

// ReturnSlot receives the single result of a call. It can be written once.
type ReturnSlot struct {
	value dyncall.Value
}

// Set stores v. A second Set, or a nil value, fails with KindInvalidState.
func (r *ReturnSlot) Set(v dyncall.Value) error {
	if v == nil {
		return errors.InvalidState("return slot", "nil result")
	}
	if r.value != nil {
		return errors.InvalidState("return slot", "already written")
	}
	r.value = v
	return nil
}

// Value returns the stored result, or nil when nothing was written.
func (r *ReturnSlot) Value() dyncall.Value { return r.value }

// Tag returns the tag of the stored result, TagInvalid when empty.
func (r *ReturnSlot) Tag() dyncall.Tag {
	if r.value == nil {
		return dyncall.TagInvalid
	}
	return r.value.Tag()
}

// Filled reports whether a result has been written.
func (r *ReturnSlot) Filled() bool { return r.value != nil }
