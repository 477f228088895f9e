package host

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/errors"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want dyncall.Value
	}{
		{"42", dyncall.Integer(42)},
		{"-5", dyncall.Integer(-5)},
		{"0x10", dyncall.Integer(16)},
		{"9223372036854775807", dyncall.Integer(math.MaxInt64)},
		{"-9223372036854775808", dyncall.Integer(math.MinInt64)},
		{"2.7", dyncall.Double(2.7)},
		{"1e3", dyncall.Double(1000)},
		{"inf", dyncall.Double(math.Inf(1))},
		{"-Inf", dyncall.Double(math.Inf(-1))},
		{"i:7", dyncall.Integer(7)},
		{"d:7", dyncall.Double(7)},
		{" d: 1.5 ", dyncall.Double(1.5)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLiteral(tt.in)
			if err != nil {
				t.Fatalf("ParseLiteral(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLiteral(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLiteral_SpecialDoubles(t *testing.T) {
	v, err := ParseLiteral("nan")
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := v.(dyncall.Double); !ok || !math.IsNaN(float64(d)) {
		t.Errorf("nan = %#v", v)
	}

	v, err = ParseLiteral("d:-0")
	if err != nil {
		t.Fatal(err)
	}
	if v.Bits() != math.Float64bits(math.Copysign(0, -1)) {
		t.Errorf("d:-0 lost its sign: %#x", v.Bits())
	}
}

func TestParseLiteral_Errors(t *testing.T) {
	for _, in := range []string{"", "abc", "i:2.5", "d:x", "q:1", "99999999999999999999", "1.2.3"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseLiteral(in)
			if !errors.IsKind(err, errors.KindInvalidInput) {
				t.Errorf("ParseLiteral(%q) = %v, want invalid input", in, err)
			}
		})
	}
}

func TestParseLiterals(t *testing.T) {
	got, err := ParseLiterals([]string{"1", "2.5", "i:3"})
	if err != nil {
		t.Fatal(err)
	}
	want := Values{dyncall.Integer(1), dyncall.Double(2.5), dyncall.Integer(3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseLiterals mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseLiterals([]string{"1", "oops"})
	e, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("err = %v, want *errors.Error", err)
	}
	if diff := cmp.Diff([]string{"arg[1]"}, e.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestValues_At(t *testing.T) {
	v := Values{dyncall.Integer(1), nil}
	if v.Len() != 2 {
		t.Fatalf("Len = %d", v.Len())
	}
	if got, err := v.At(0); err != nil || got != dyncall.Integer(1) {
		t.Errorf("At(0) = %v, %v", got, err)
	}
	for _, i := range []int{-1, 1, 2} {
		if _, err := v.At(i); !errors.IsKind(err, errors.KindInvalidInput) {
			t.Errorf("At(%d) = %v, want invalid input", i, err)
		}
	}
}

func TestReturnSlot(t *testing.T) {
	var r ReturnSlot
	if r.Filled() || r.Tag() != dyncall.TagInvalid || r.Value() != nil {
		t.Fatal("zero slot should be empty")
	}
	if err := r.Set(nil); !errors.IsKind(err, errors.KindInvalidState) {
		t.Errorf("Set(nil) = %v", err)
	}
	if err := r.Set(dyncall.Double(2)); err != nil {
		t.Fatal(err)
	}
	if !r.Filled() || r.Tag() != dyncall.TagDouble || r.Value() != dyncall.Double(2) {
		t.Errorf("slot = %v (%s)", r.Value(), r.Tag())
	}
	if err := r.Set(dyncall.Integer(1)); !errors.IsKind(err, errors.KindInvalidState) {
		t.Errorf("second Set = %v, want invalid state", err)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   dyncall.Value
		want string
	}{
		{dyncall.Integer(-5), "-5"},
		{dyncall.Double(2), "2.0"},
		{dyncall.Double(2.5), "2.5"},
		{dyncall.Double(math.Copysign(0, -1)), "-0.0"},
		{dyncall.Double(math.NaN()), "NaN"},
		{dyncall.Double(math.Inf(1)), "+Inf"},
		{dyncall.Double(1e300), "1e+300"},
		{nil, "<none>"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
