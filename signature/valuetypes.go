package signature

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/errors"
)

// FromValueTypes derives a plan from core wasm parameter and result types.
// i32 and i64 map to integer; f32 and f64 map to double.
func FromValueTypes(params, results []api.ValueType) (*Plan, error) {
	plan := &Plan{Args: make([]dyncall.Tag, len(params))}
	for i, vt := range params {
		tag, ok := TagForValueType(vt)
		if !ok {
			return nil, errors.New(errors.PhaseParse, errors.KindUnknownArgumentSpec).
				Path(errors.ArgPath(i)...).
				Got(api.ValueTypeName(vt)).
				Build()
		}
		plan.Args[i] = tag
	}
	if len(results) != 1 {
		return nil, errors.New(errors.PhaseParse, errors.KindUnknownReturnSpec).
			Want("1 result").
			Got(resultCount(len(results))).
			Build()
	}
	tag, ok := TagForValueType(results[0])
	if !ok {
		return nil, errors.New(errors.PhaseParse, errors.KindUnknownReturnSpec).
			Got(api.ValueTypeName(results[0])).
			Build()
	}
	plan.Return = tag
	return plan, nil
}

// TagForValueType maps a core wasm value type to a scalar tag.
func TagForValueType(vt api.ValueType) (dyncall.Tag, bool) {
	switch vt {
	case api.ValueTypeI32, api.ValueTypeI64:
		return dyncall.TagInteger, true
	case api.ValueTypeF32, api.ValueTypeF64:
		return dyncall.TagDouble, true
	default:
		return dyncall.TagInvalid, false
	}
}

func resultCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return dyncall.Integer(n).String() + " results"
}
