package callvm

import (
	"context"
	"encoding/binary"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/errors"
)

// DefaultSessionBytes is the argument stack capacity used when none is given.
const DefaultSessionBytes = 4096

// SlotSize is the number of stack bytes each argument occupies.
const SlotSize = 8

// Frame is the read-only view of a session handed to a Function.
// Stack holds one SlotSize slot per argument in call order.
type Frame struct {
	Stack      []byte
	Tags       []dyncall.Tag
	Convention Convention
}

// Slot returns the raw 64-bit contents of argument i.
func (f *Frame) Slot(i int) uint64 {
	return binary.NativeEndian.Uint64(f.Stack[i*SlotSize:])
}

// Function is a resolved callable symbol.
// Call performs the call described by frame and returns the raw 64-bit
// result to be interpreted according to ret.
type Function interface {
	Name() string
	Call(ctx context.Context, frame *Frame, ret dyncall.Tag) (uint64, error)
}

type sessionState uint8

const (
	stateOpen sessionState = iota
	stateInvoked
	stateFreed
)

// Session accumulates arguments for a single call. It is not safe for
// concurrent use and is never reused after Invoke.
type Session struct {
	stack      []byte
	tags       []dyncall.Tag
	capacity   int
	frees      int
	convention Convention
	state      sessionState
}

// NewSession creates a session whose argument stack holds at most maxBytes
// bytes. A non-positive maxBytes selects DefaultSessionBytes.
func NewSession(maxBytes int) *Session {
	if maxBytes <= 0 {
		maxBytes = DefaultSessionBytes
	}
	return &Session{
		stack:    make([]byte, 0, maxBytes),
		capacity: maxBytes,
	}
}

// Capacity returns the maximum stack size in bytes.
func (s *Session) Capacity() int { return s.capacity }

// Used returns the number of stack bytes holding arguments.
func (s *Session) Used() int { return len(s.stack) }

// Len returns the number of pushed arguments.
func (s *Session) Len() int { return len(s.tags) }

// Convention returns the configured convention.
func (s *Session) Convention() Convention { return s.convention }

// Frees returns how many times Free has been called.
func (s *Session) Frees() int { return s.frees }

// SetConvention configures the calling convention. It must be called before
// the first Push.
func (s *Session) SetConvention(c Convention) error {
	if err := s.checkOpen("set convention"); err != nil {
		return err
	}
	if len(s.tags) > 0 {
		return errors.InvalidState("call session", "convention set after arguments were pushed")
	}
	s.convention = c
	return nil
}

// Push appends v as the next argument. The value's tag must equal the declared tag.
func (s *Session) Push(v dyncall.Value, tag dyncall.Tag) error {
	if err := s.checkOpen("push"); err != nil {
		return err
	}
	pos := len(s.tags)
	if !tag.Valid() {
		return errors.New(errors.PhaseMarshal, errors.KindUnknownArgumentSpec).
			Path(errors.ArgPath(pos)...).
			Got(tag.String()).
			Build()
	}
	if v == nil {
		return errors.New(errors.PhaseMarshal, errors.KindArgumentTypeMismatch).
			Path(errors.ArgPath(pos)...).
			Want(tag.String()).
			Got("nil").
			Build()
	}
	if v.Tag() != tag {
		return errors.ArgumentTypeMismatch(pos, tag.String(), v.Tag().String())
	}
	if len(s.stack)+SlotSize > s.capacity {
		return errors.CallSessionOverflow(pos, SlotSize, len(s.stack), s.capacity)
	}
	s.stack = binary.NativeEndian.AppendUint64(s.stack, v.Bits())
	s.tags = append(s.tags, tag)
	return nil
}

// Invoke calls fn with the accumulated arguments and decodes the result as ret.
// A session can be invoked once.
func (s *Session) Invoke(ctx context.Context, fn Function, ret dyncall.Tag) (dyncall.Value, error) {
	if err := s.checkOpen("invoke"); err != nil {
		return nil, err
	}
	if !ret.Valid() {
		return nil, errors.UnknownReturnSpec(errors.PhaseInvoke, ret.String(), "unknown return tag")
	}
	s.state = stateInvoked

	frame := &Frame{
		Stack:      s.stack,
		Tags:       s.tags,
		Convention: s.convention,
	}
	raw, err := fn.Call(ctx, frame, ret)
	if err != nil {
		return nil, err
	}
	return dyncall.FromBits(ret, raw), nil
}

// Free releases the argument stack. Calls after the first are no-ops.
func (s *Session) Free() {
	s.frees++
	if s.state == stateFreed {
		return
	}
	s.state = stateFreed
	s.stack = nil
	s.tags = nil
}

func (s *Session) checkOpen(op string) error {
	switch s.state {
	case stateInvoked:
		return errors.InvalidState("call session", op+" after invoke")
	case stateFreed:
		return errors.InvalidState("call session", op+" after free")
	}
	return nil
}
