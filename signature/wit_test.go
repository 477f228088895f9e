package signature

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/dyncall/errors"
)

func TestFromWIT(t *testing.T) {
	tests := []struct {
		decl string
		name string
		want string
	}{
		{"floor: func(x: f64) -> f64", "floor", "(d)d"},
		{"export abs: func(n: s32) -> s32;", "abs", "(i)i"},
		{"mix: func(a: s64, b: f32) -> u8", "mix", "(id)i"},
		{"now: func() -> f64", "now", "()d"},
		{"named: func(x: u64) -> (r: s64)", "named", "(i)i"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, plan, err := FromWIT(tt.decl)
			if err != nil {
				t.Fatalf("FromWIT(%q): %v", tt.decl, err)
			}
			if name != tt.name {
				t.Errorf("name = %q, want %q", name, tt.name)
			}
			if got := plan.String(); got != tt.want {
				t.Errorf("plan = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFromWIT_Errors(t *testing.T) {
	tests := []struct {
		decl string
		kind errors.Kind
	}{
		{"not a function", errors.KindUnknownArgumentSpec},
		{"greet: func(name: string) -> s32", errors.KindUnknownArgumentSpec},
		{"log: func(x: s32)", errors.KindUnknownReturnSpec},
		{"ok: func(x: s32) -> bool", errors.KindUnknownReturnSpec},
		{"pair: func() -> (a: s32, b: s32)", errors.KindUnknownReturnSpec},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			_, _, err := FromWIT(tt.decl)
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("FromWIT(%q) = %v, want %s", tt.decl, err, tt.kind)
			}
		})
	}
}

func TestParseWIT(t *testing.T) {
	text := `
interface math {
	floor: func(x: f64) -> f64;
	abs: func(n: s64) -> s64;
}
`
	plans, err := ParseWIT(text)
	if err != nil {
		t.Fatalf("ParseWIT: %v", err)
	}
	got := map[string]string{}
	for name, p := range plans {
		got[name] = p.String()
	}
	want := map[string]string{"floor": "(d)d", "abs": "(i)i"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseWIT mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseWIT("package a:b;"); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("ParseWIT(no funcs) = %v, want invalid input", err)
	}
}

func TestFromValueTypes(t *testing.T) {
	tests := []struct {
		name    string
		params  []api.ValueType
		results []api.ValueType
		want    string
		kind    errors.Kind
	}{
		{"identity i64", []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}, "(i)i", ""},
		{"mixed", []api.ValueType{api.ValueTypeI32, api.ValueTypeF64}, []api.ValueType{api.ValueTypeF32}, "(id)d", ""},
		{"externref param", []api.ValueType{api.ValueTypeExternref}, []api.ValueType{api.ValueTypeI32}, "", errors.KindUnknownArgumentSpec},
		{"no result", []api.ValueType{api.ValueTypeI32}, nil, "", errors.KindUnknownReturnSpec},
		{"two results", nil, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, "", errors.KindUnknownReturnSpec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := FromValueTypes(tt.params, tt.results)
			if tt.kind != "" {
				if !errors.IsKind(err, tt.kind) {
					t.Fatalf("err = %v, want %s", err, tt.kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromValueTypes: %v", err)
			}
			if got := plan.String(); got != tt.want {
				t.Errorf("plan = %s, want %s", got, tt.want)
			}
		})
	}
}
