package manifest

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/errors"
	"github.com/wippyai/dyncall/host"
)

type hclFile struct {
	Calls []*hclCall `hcl:"call,block"`
}

type hclCall struct {
	Args       hcl.Expression `hcl:"args,optional"`
	Expect     hcl.Expression `hcl:"expect,optional"`
	Name       string         `hcl:"name,label"`
	Library    string         `hcl:"library"`
	Convention string         `hcl:"convention,optional"`
	Symbol     string         `hcl:"symbol,optional"`
	Spec       string         `hcl:"spec,optional"`
	WIT        string         `hcl:"wit,optional"`
}

// valueType carries an explicitly typed dyncall.Value through HCL
// expressions.
var valueType = cty.Capsule("dyncall.Value", reflect.TypeOf((*dyncall.Value)(nil)).Elem())

var (
	intFunc = function.New(&function.Spec{
		Params: []function.Parameter{{Name: "n", Type: cty.Number}},
		Type:   function.StaticReturnType(valueType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			bf := args[0].AsBigFloat()
			if !bf.IsInt() {
				return cty.NilVal, fmt.Errorf("%s is not a whole number", bf.Text('g', -1))
			}
			n, acc := bf.Int64()
			if acc != big.Exact {
				return cty.NilVal, fmt.Errorf("%s overflows a 64-bit integer", bf.Text('g', -1))
			}
			return capsule(dyncall.Integer(n)), nil
		},
	})

	doubleFunc = function.New(&function.Spec{
		Params: []function.Parameter{{Name: "x", Type: cty.DynamicPseudoType}},
		Type:   function.StaticReturnType(valueType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			switch v := args[0]; v.Type() {
			case cty.Number:
				f, _ := v.AsBigFloat().Float64()
				return capsule(dyncall.Double(f)), nil
			case cty.String:
				f, err := strconv.ParseFloat(v.AsString(), 64)
				if err != nil {
					return cty.NilVal, fmt.Errorf("invalid double %q", v.AsString())
				}
				return capsule(dyncall.Double(f)), nil
			default:
				return cty.NilVal, fmt.Errorf("double() takes a number or string, got %s", v.Type().FriendlyName())
			}
		},
	})
)

func capsule(v dyncall.Value) cty.Value {
	return cty.CapsuleVal(valueType, &v)
}

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"int":    intFunc,
			"double": doubleFunc,
		},
	}
}

// ParseHCL parses an HCL manifest of call blocks. Whole numbers are
// integers and fractional numbers doubles; int() and double() force a type.
// path is used for diagnostics.
func ParseHCL(data []byte, path string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, diags, "parsing "+path)
	}

	ctx := evalContext()
	var f hclFile
	if diags := gohcl.DecodeBody(file.Body, ctx, &f); diags.HasErrors() {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, diags, "decoding "+path)
	}

	m := &Manifest{Path: path}
	for i, c := range f.Calls {
		args, err := hclArgs(c.Args, ctx)
		if err != nil {
			return nil, manifestError(path, i, "args", err)
		}
		expect, err := hclExpect(c.Expect, ctx)
		if err != nil {
			return nil, manifestError(path, i, "expect", err)
		}

		call, err := callSpec{
			name:       c.Name,
			library:    c.Library,
			convention: c.Convention,
			symbol:     c.Symbol,
			spec:       c.Spec,
			wit:        c.WIT,
		}.build(i, args, expect)
		if err != nil {
			return nil, manifestError(path, i, "", err)
		}
		m.Calls = append(m.Calls, call)
	}
	return m, nil
}

func hclArgs(expr hcl.Expression, ctx *hcl.EvalContext) (host.Values, error) {
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return host.Values{}, nil
	}
	if !val.CanIterateElements() || val.Type().IsMapType() || val.Type().IsObjectType() {
		return nil, errors.InvalidInput(errors.PhaseConfig, "args must be a list, got "+val.Type().FriendlyName())
	}

	var out host.Values
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		v, err := ctyValue(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func hclExpect(expr hcl.Expression, ctx *hcl.EvalContext) (dyncall.Value, error) {
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	return ctyValue(val)
}

func ctyValue(v cty.Value) (dyncall.Value, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, errors.InvalidInput(errors.PhaseConfig, "value is null or unknown")
	}
	switch t := v.Type(); {
	case t.Equals(valueType):
		return *(v.EncapsulatedValue().(*dyncall.Value)), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return dyncall.Integer(n), nil
			}
		}
		f, _ := bf.Float64()
		return dyncall.Double(f), nil
	case t == cty.String:
		return host.ParseLiteral(v.AsString())
	default:
		return nil, errors.InvalidInput(errors.PhaseConfig, "unsupported value of type "+t.FriendlyName())
	}
}
