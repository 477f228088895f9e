package callvm

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/wippyai/dyncall"
	dcerrors "github.com/wippyai/dyncall/errors"
)

// echoFunc returns the first argument slot unchanged.
type echoFunc struct {
	calls int
	frame *Frame
}

func (f *echoFunc) Name() string { return "echo" }

func (f *echoFunc) Call(_ context.Context, frame *Frame, _ dyncall.Tag) (uint64, error) {
	f.calls++
	f.frame = frame
	if len(frame.Tags) == 0 {
		return 0, nil
	}
	return frame.Slot(0), nil
}

type failFunc struct{ err error }

func (f failFunc) Name() string { return "fail" }

func (f failFunc) Call(context.Context, *Frame, dyncall.Tag) (uint64, error) {
	return 0, f.err
}

func TestSession_IntegerRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, math.MinInt64, math.MaxInt64} {
		s := NewSession(0)
		if err := s.Push(dyncall.Integer(n), dyncall.TagInteger); err != nil {
			t.Fatalf("Push(%d): %v", n, err)
		}
		v, err := s.Invoke(context.Background(), &echoFunc{}, dyncall.TagInteger)
		s.Free()
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if got, ok := v.(dyncall.Integer); !ok || int64(got) != n {
			t.Errorf("round trip %d = %#v", n, v)
		}
	}
}

func TestSession_DoubleRoundTrip(t *testing.T) {
	for _, x := range []float64{0, math.Copysign(0, -1), 1.5, math.NaN(), math.Inf(1)} {
		s := NewSession(0)
		if err := s.Push(dyncall.Double(x), dyncall.TagDouble); err != nil {
			t.Fatalf("Push(%v): %v", x, err)
		}
		v, err := s.Invoke(context.Background(), &echoFunc{}, dyncall.TagDouble)
		s.Free()
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		got, ok := v.(dyncall.Double)
		if !ok {
			t.Fatalf("result type = %T, want Double", v)
		}
		if math.Float64bits(float64(got)) != math.Float64bits(x) {
			t.Errorf("round trip bits %#x, want %#x", math.Float64bits(float64(got)), math.Float64bits(x))
		}
	}
}

func TestSession_FrameOrder(t *testing.T) {
	s := NewSession(0)
	defer s.Free()
	if err := s.SetConvention(ConventionSysV); err != nil {
		t.Fatal(err)
	}
	args := []dyncall.Value{dyncall.Integer(7), dyncall.Double(2.5), dyncall.Integer(-3)}
	for _, a := range args {
		if err := s.Push(a, a.Tag()); err != nil {
			t.Fatal(err)
		}
	}
	if s.Used() != 3*SlotSize || s.Len() != 3 {
		t.Fatalf("Used=%d Len=%d", s.Used(), s.Len())
	}

	fn := &echoFunc{}
	if _, err := s.Invoke(context.Background(), fn, dyncall.TagInteger); err != nil {
		t.Fatal(err)
	}
	if fn.calls != 1 {
		t.Errorf("calls = %d, want 1", fn.calls)
	}
	if fn.frame.Convention != ConventionSysV {
		t.Errorf("Convention = %v, want sysv", fn.frame.Convention)
	}
	for i, a := range args {
		if fn.frame.Tags[i] != a.Tag() {
			t.Errorf("Tags[%d] = %v, want %v", i, fn.frame.Tags[i], a.Tag())
		}
		if fn.frame.Slot(i) != a.Bits() {
			t.Errorf("Slot(%d) = %#x, want %#x", i, fn.frame.Slot(i), a.Bits())
		}
	}
}

func TestSession_TypeMismatch(t *testing.T) {
	s := NewSession(0)
	defer s.Free()

	err := s.Push(dyncall.Double(1), dyncall.TagInteger)
	if !dcerrors.IsKind(err, dcerrors.KindArgumentTypeMismatch) {
		t.Fatalf("Push(double as integer) = %v, want type mismatch", err)
	}
	err = s.Push(nil, dyncall.TagDouble)
	if !dcerrors.IsKind(err, dcerrors.KindArgumentTypeMismatch) {
		t.Fatalf("Push(nil) = %v, want type mismatch", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after failed pushes, want 0", s.Len())
	}
}

func TestSession_InvalidDeclaredTag(t *testing.T) {
	s := NewSession(0)
	defer s.Free()

	for _, v := range []dyncall.Value{dyncall.Integer(1), dyncall.Double(1), nil} {
		err := s.Push(v, dyncall.Tag(99))
		if !dcerrors.IsKind(err, dcerrors.KindUnknownArgumentSpec) {
			t.Errorf("Push(%v, tag 99) = %v, want unknown argument spec", v, err)
		}
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after failed pushes, want 0", s.Len())
	}
}

func TestSession_Overflow(t *testing.T) {
	s := NewSession(2 * SlotSize)
	defer s.Free()

	for i := 0; i < 2; i++ {
		if err := s.Push(dyncall.Integer(i), dyncall.TagInteger); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}
	err := s.Push(dyncall.Integer(2), dyncall.TagInteger)
	if !dcerrors.IsKind(err, dcerrors.KindCallSessionOverflow) {
		t.Fatalf("third Push = %v, want overflow", err)
	}
	if s.Used() != 2*SlotSize {
		t.Errorf("Used = %d, want %d", s.Used(), 2*SlotSize)
	}
}

func TestSession_DefaultCapacity(t *testing.T) {
	if got := NewSession(-1).Capacity(); got != DefaultSessionBytes {
		t.Errorf("Capacity = %d, want %d", got, DefaultSessionBytes)
	}
	s := NewSession(0)
	for i := 0; i < DefaultSessionBytes/SlotSize; i++ {
		if err := s.Push(dyncall.Integer(i), dyncall.TagInteger); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}
	if err := s.Push(dyncall.Integer(0), dyncall.TagInteger); !dcerrors.IsKind(err, dcerrors.KindCallSessionOverflow) {
		t.Errorf("Push past default capacity = %v, want overflow", err)
	}
}

func TestSession_ConventionAfterPush(t *testing.T) {
	s := NewSession(0)
	defer s.Free()
	if err := s.Push(dyncall.Integer(1), dyncall.TagInteger); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConvention(ConventionWin64); !dcerrors.IsKind(err, dcerrors.KindInvalidState) {
		t.Errorf("SetConvention after push = %v, want invalid state", err)
	}
}

func TestSession_UnknownReturnTag(t *testing.T) {
	s := NewSession(0)
	defer s.Free()
	fn := &echoFunc{}
	_, err := s.Invoke(context.Background(), fn, dyncall.Tag(99))
	if !dcerrors.IsKind(err, dcerrors.KindUnknownReturnSpec) {
		t.Fatalf("Invoke(bad tag) = %v, want unknown return spec", err)
	}
	if fn.calls != 0 {
		t.Errorf("function called %d times, want 0", fn.calls)
	}
}

func TestSession_SingleShot(t *testing.T) {
	s := NewSession(0)
	fn := &echoFunc{}
	if _, err := s.Invoke(context.Background(), fn, dyncall.TagInteger); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Invoke(context.Background(), fn, dyncall.TagInteger); !dcerrors.IsKind(err, dcerrors.KindInvalidState) {
		t.Errorf("second Invoke = %v, want invalid state", err)
	}
	if err := s.Push(dyncall.Integer(1), dyncall.TagInteger); !dcerrors.IsKind(err, dcerrors.KindInvalidState) {
		t.Errorf("Push after Invoke = %v, want invalid state", err)
	}

	s.Free()
	s.Free()
	if s.Frees() != 2 {
		t.Errorf("Frees = %d, want 2", s.Frees())
	}
	if err := s.Push(dyncall.Integer(1), dyncall.TagInteger); !dcerrors.IsKind(err, dcerrors.KindInvalidState) {
		t.Errorf("Push after Free = %v, want invalid state", err)
	}
}

func TestSession_InvokeError(t *testing.T) {
	s := NewSession(0)
	defer s.Free()
	want := errors.New("boom")
	_, err := s.Invoke(context.Background(), failFunc{err: want}, dyncall.TagDouble)
	if !errors.Is(err, want) {
		t.Errorf("Invoke = %v, want %v", err, want)
	}
}

func TestParseConvention(t *testing.T) {
	tests := []struct {
		in   string
		want Convention
	}{
		{"", ConventionDefault},
		{"default", ConventionDefault},
		{"C", ConventionCDecl},
		{"cdecl", ConventionCDecl},
		{"SysV", ConventionSysV},
		{"stdcall", ConventionStdCall},
		{"fastcall", ConventionFastCall},
		{"thiscall", ConventionThisCall},
		{"unix64", ConventionUnix64},
		{"win64", ConventionWin64},
		{"ms64", ConventionWin64},
	}
	for _, tt := range tests {
		got, err := ParseConvention(tt.in)
		if err != nil {
			t.Errorf("ParseConvention(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseConvention(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseConvention("pascal"); !dcerrors.IsKind(err, dcerrors.KindUnsupportedConvention) {
		t.Errorf("ParseConvention(pascal) = %v, want unsupported convention", err)
	}
}

func TestConvention_String(t *testing.T) {
	for c := ConventionDefault; c <= ConventionWin64; c++ {
		back, err := ParseConvention(c.String())
		if err != nil || back != c {
			t.Errorf("ParseConvention(%q) = %v, %v; want %v", c.String(), back, err, c)
		}
	}
	if Convention(200).String() != "unknown" {
		t.Errorf("out of range String = %q", Convention(200).String())
	}
}
