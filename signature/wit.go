package signature

import (
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/errors"
)

// Pattern: [export] name: func(params) -> result;
var witFuncPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;\n]+))?`)

// FromWIT converts a single WIT function declaration such as
// "floor: func(x: f64) -> f64" into a plan. It returns the function name
// alongside the plan.
func FromWIT(decl string) (string, *Plan, error) {
	m := witFuncPattern.FindStringSubmatch(decl)
	if m == nil {
		return "", nil, errors.UnknownArgumentSpec(decl, 0, "not a WIT function declaration")
	}
	plan, err := witPlan(decl, m)
	if err != nil {
		return "", nil, err
	}
	return m[1], plan, nil
}

// ParseWIT extracts every function declaration from WIT text.
func ParseWIT(witText string) (map[string]*Plan, error) {
	plans := make(map[string]*Plan)
	for _, m := range witFuncPattern.FindAllStringSubmatch(witText, -1) {
		plan, err := witPlan(m[0], m)
		if err != nil {
			return nil, err
		}
		plans[m[1]] = plan
	}
	if len(plans) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}
	return plans, nil
}

func witPlan(decl string, m []string) (*Plan, error) {
	plan := &Plan{}

	if params := strings.TrimSpace(m[2]); params != "" {
		for i, p := range strings.Split(params, ",") {
			typStr := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typStr = p[idx+1:]
			}
			tag, err := witTag(typStr)
			if err != nil {
				return nil, errors.New(errors.PhaseParse, errors.KindUnknownArgumentSpec).
					Path(errors.ArgPath(i)...).
					Got(strings.TrimSpace(typStr)).
					Detail("WIT parameter type has no scalar mapping in %q", decl).
					Cause(err).
					Build()
			}
			plan.Args = append(plan.Args, tag)
		}
	}

	result := strings.TrimSpace(m[3])
	if strings.HasPrefix(result, "(") && strings.HasSuffix(result, ")") {
		inner := strings.TrimSpace(result[1 : len(result)-1])
		if strings.Contains(inner, ",") {
			return nil, errors.UnknownReturnSpec(errors.PhaseParse, decl, "multiple results")
		}
		if idx := strings.LastIndex(inner, ":"); idx != -1 {
			inner = inner[idx+1:]
		}
		result = inner
	}
	if result == "" {
		return nil, errors.UnknownReturnSpec(errors.PhaseParse, decl, "missing result type")
	}
	tag, err := witTag(result)
	if err != nil {
		return nil, errors.UnknownReturnSpec(errors.PhaseParse, decl, "result type "+result+" has no scalar mapping")
	}
	plan.Return = tag
	return plan, nil
}

func witTag(s string) (dyncall.Tag, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return dyncall.TagInvalid, err
	}
	switch t.(type) {
	case wit.S8, wit.S16, wit.S32, wit.S64, wit.U8, wit.U16, wit.U32, wit.U64:
		return dyncall.TagInteger, nil
	case wit.F32, wit.F64:
		return dyncall.TagDouble, nil
	default:
		return dyncall.TagInvalid, errors.Unsupported(errors.PhaseParse, "WIT type "+strings.TrimSpace(s))
	}
}
