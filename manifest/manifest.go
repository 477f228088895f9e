// Package manifest reads batch call files and runs them through a
// dispatcher. Calls can be written in YAML or HCL:
//
//	calls:
//	  - name: floor
//	    library: libm
//	    symbol: floor
//	    spec: (d)d
//	    args: [2.7]
//	    expect: 2.0
//
//	call "floor" {
//	  library = "libm"
//	  symbol  = "floor"
//	  spec    = "(d)d"
//	  args    = [double(2.7)]
//	  expect  = double(2)
//	}
//
// A call may give a WIT declaration (wit) instead of spec; the symbol then
// defaults to the declared function name.
package manifest

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/dispatch"
	"github.com/wippyai/dyncall/errors"
	"github.com/wippyai/dyncall/host"
	"github.com/wippyai/dyncall/signature"
)

// Call is one entry of a manifest.
type Call struct {
	// Expect is the required result, nil when the call has no expectation.
	Expect  dyncall.Value
	Name    string
	Request dispatch.Request
}

// Manifest is a parsed call file.
type Manifest struct {
	Path  string
	Calls []Call
}

// Result is the outcome of one call.
type Result struct {
	Value dyncall.Value
	Err   error
	Call  Call
}

// OK reports whether the call succeeded and met its expectation.
func (r Result) OK() bool { return r.Err == nil }

// Load reads a manifest, choosing the format from the file extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "reading manifest "+path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	case ".hcl":
		return ParseHCL(data, path)
	}
	return nil, errors.InvalidInput(errors.PhaseConfig, "unknown manifest format "+strconv.Quote(filepath.Ext(path)))
}

// Run dispatches every call in order. A failing call does not stop the run.
func (m *Manifest) Run(ctx context.Context, d *dispatch.Dispatcher) []Result {
	results := make([]Result, 0, len(m.Calls))
	for _, c := range m.Calls {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Call: c, Err: err})
			continue
		}
		v, err := d.Dispatch(ctx, c.Request)
		if err == nil {
			err = c.Check(v)
		}
		results = append(results, Result{Call: c, Value: v, Err: err})
	}
	return results
}

// Check compares v with the expectation. Values match when they have the
// same tag and bit pattern; any NaN matches any NaN.
func (c Call) Check(v dyncall.Value) error {
	if c.Expect == nil {
		return nil
	}
	if v != nil && v.Tag() == c.Expect.Tag() {
		if v.Bits() == c.Expect.Bits() {
			return nil
		}
		if v.Tag() == dyncall.TagDouble && isNaN(v) && isNaN(c.Expect) {
			return nil
		}
	}
	return errors.ExpectationFailed(c.Name, describe(c.Expect), describe(v))
}

// callSpec holds the fields shared by both formats before validation.
type callSpec struct {
	name       string
	library    string
	convention string
	symbol     string
	spec       string
	wit        string
}

func (s callSpec) build(index int, args host.Values, expect dyncall.Value) (Call, error) {
	if s.name == "" {
		s.name = "call[" + strconv.Itoa(index) + "]"
	}
	if s.library == "" {
		return Call{}, callError(s.name, "library is required")
	}
	switch {
	case s.spec != "" && s.wit != "":
		return Call{}, callError(s.name, "spec and wit are mutually exclusive")
	case s.wit != "":
		fn, plan, err := signature.FromWIT(s.wit)
		if err != nil {
			return Call{}, err
		}
		if s.symbol == "" {
			s.symbol = fn
		}
		s.spec = plan.String()
	case s.spec == "":
		return Call{}, callError(s.name, "spec or wit is required")
	}
	if s.symbol == "" {
		return Call{}, callError(s.name, "symbol is required")
	}
	return Call{
		Name:   s.name,
		Expect: expect,
		Request: dispatch.Request{
			Library:    s.library,
			Convention: s.convention,
			Symbol:     s.symbol,
			Spec:       s.spec,
			Args:       args,
		},
	}, nil
}

func callError(name, detail string) *errors.Error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(name).
		Detail("%s", detail).
		Build()
}

func isNaN(v dyncall.Value) bool {
	d, ok := v.(dyncall.Double)
	return ok && math.IsNaN(float64(d))
}

func describe(v dyncall.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Tag().String() + " " + host.Format(v)
}
