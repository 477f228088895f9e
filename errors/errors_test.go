package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseMarshal,
				Kind:   KindArgumentTypeMismatch,
				Path:   []string{"arg[1]"},
				Want:   "integer",
				Got:    "double",
				Detail: "no coercion",
			},
			contains: []string{"[marshal]", "argument_type_mismatch", "arg[1]", "want integer", "got double", "no coercion"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseParse,
				Kind:  KindUnknownReturnSpec,
			},
			contains: []string{"[parse]", "unknown_return_spec"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindLibraryLoadFailed,
				Detail: "cannot open",
				Cause:  errors.New("no such file"),
			},
			contains: []string{"[load]", "library_load_failed", "cannot open", "caused by", "no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindLibraryLoadFailed,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseMarshal,
		Kind:  KindArityMismatch,
		Path:  []string{"arg[0]"},
	}

	if !err.Is(&Error{Phase: PhaseMarshal, Kind: KindArityMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseParse, Kind: KindArityMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseMarshal, Kind: KindCallSessionOverflow}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseMarshal, Kind: KindArityMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestIsKind(t *testing.T) {
	primary := ArityMismatch(2, 1)
	teardown := InvalidState("handle", "already closed")

	tests := []struct {
		name string
		err  error
		kind Kind
		want bool
	}{
		{"direct", primary, KindArityMismatch, true},
		{"other kind", primary, KindSymbolNotFound, false},
		{"wrapped", fmt.Errorf("dispatch: %w", primary), KindArityMismatch, true},
		{"multierr first", multierr.Append(primary, teardown), KindArityMismatch, true},
		{"multierr second", multierr.Append(primary, teardown), KindInvalidState, true},
		{"joined", errors.Join(teardown, primary), KindArityMismatch, true},
		{"plain", errors.New("x"), KindArityMismatch, false},
		{"nil", nil, KindArityMismatch, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsKind(tt.err, tt.kind); got != tt.want {
				t.Errorf("IsKind(%v, %s) = %v, want %v", tt.err, tt.kind, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(fmt.Errorf("x: %w", SymbolNotFound("lib", "sym", nil))); got != KindSymbolNotFound {
		t.Errorf("KindOf = %q, want %q", got, KindSymbolNotFound)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestPhaseOf(t *testing.T) {
	if got := PhaseOf(fmt.Errorf("x: %w", SymbolNotFound("lib", "sym", nil))); got != PhaseResolve {
		t.Errorf("PhaseOf = %q, want %q", got, PhaseResolve)
	}
	if got := PhaseOf(errors.New("plain")); got != "" {
		t.Errorf("PhaseOf(plain) = %q, want empty", got)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseMarshal, KindArgumentTypeMismatch).
		Path("arg[2]").
		Want("integer").
		Got("double").
		Value(2.5).
		Cause(cause).
		Detail("expected %s, got %s", "i", "d").
		Build()

	if err.Phase != PhaseMarshal {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseMarshal)
	}
	if err.Kind != KindArgumentTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindArgumentTypeMismatch)
	}
	if len(err.Path) != 1 || err.Path[0] != "arg[2]" {
		t.Errorf("Path = %v, want [arg[2]]", err.Path)
	}
	if err.Want != "integer" || err.Got != "double" {
		t.Errorf("Want=%v Got=%v", err.Want, err.Got)
	}
	if err.Value != 2.5 {
		t.Errorf("Value = %v, want 2.5", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected i, got d" {
		t.Errorf("Detail = %v, want 'expected i, got d'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("LibraryLoadFailed", func(t *testing.T) {
		err := LibraryLoadFailed("libnope.so", errors.New("dlopen"))
		if err.Kind != KindLibraryLoadFailed || err.Phase != PhaseLoad {
			t.Errorf("got %s/%s", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), "libnope.so") {
			t.Errorf("Error() = %q, should name the path", err.Error())
		}
	})

	t.Run("SymbolNotFound", func(t *testing.T) {
		err := SymbolNotFound("libm.so.6", "floorx", nil)
		if err.Kind != KindSymbolNotFound || err.Phase != PhaseResolve {
			t.Errorf("got %s/%s", err.Phase, err.Kind)
		}
		if err.Value != "floorx" {
			t.Errorf("Value = %v, want floorx", err.Value)
		}
	})

	t.Run("UnknownArgumentSpec", func(t *testing.T) {
		err := UnknownArgumentSpec("(x)i", 1, "unknown argument code")
		if err.Kind != KindUnknownArgumentSpec {
			t.Errorf("Kind = %v", err.Kind)
		}
		if err.Value != "x" {
			t.Errorf("Value = %v, want x", err.Value)
		}
		if !strings.Contains(err.Detail, "offset 1") {
			t.Errorf("Detail = %q, should contain offset", err.Detail)
		}
	})

	t.Run("UnknownArgumentSpec past end", func(t *testing.T) {
		err := UnknownArgumentSpec("(i", 2, "missing ')'")
		if err.Value != nil {
			t.Errorf("Value = %v, want nil", err.Value)
		}
	})

	t.Run("UnknownReturnSpec", func(t *testing.T) {
		err := UnknownReturnSpec(PhaseInvoke, "(i)q", "unknown return code")
		if err.Kind != KindUnknownReturnSpec || err.Phase != PhaseInvoke {
			t.Errorf("got %s/%s", err.Phase, err.Kind)
		}
	})

	t.Run("ArgumentTypeMismatch", func(t *testing.T) {
		err := ArgumentTypeMismatch(0, "integer", "double")
		if err.Path[0] != "arg[0]" || err.Want != "integer" || err.Got != "double" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("ArityMismatch", func(t *testing.T) {
		err := ArityMismatch(2, 1)
		if err.Kind != KindArityMismatch || err.Value != 1 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("CallSessionOverflow", func(t *testing.T) {
		err := CallSessionOverflow(3, 8, 16, 16)
		if err.Kind != KindCallSessionOverflow {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Detail, "16 of 16") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("UnsupportedConvention", func(t *testing.T) {
		err := UnsupportedConvention("pascal", "unknown")
		if err.Kind != KindUnsupportedConvention || err.Value != "pascal" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("trap")
		err := Wrap(PhaseInvoke, KindInvocationFailed, cause, "call floor")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep the cause")
		}
	})
}
