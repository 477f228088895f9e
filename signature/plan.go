// Package signature parses compact signature strings into call plans.
//
// A signature has the form "(" <arg-code>* ")" <return-code>, where each code
// is a single character from the tag table of the dyncall package ("i" for
// integer, "d" for double). Whitespace between codes is ignored.
package signature

import (
	"strings"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/errors"
)

// Plan is the parsed form of a signature: one tag per expected argument and
// one return tag.
type Plan struct {
	Args   []dyncall.Tag
	Return dyncall.Tag
}

// Arity returns the number of arguments the plan expects.
func (p *Plan) Arity() int {
	return len(p.Args)
}

// CheckArity fails with an arity mismatch unless n values match the plan.
func (p *Plan) CheckArity(n int) error {
	if n != len(p.Args) {
		return errors.ArityMismatch(len(p.Args), n)
	}
	return nil
}

// String renders the plan in canonical compact form, e.g. "(id)i".
func (p *Plan) String() string {
	var b strings.Builder
	b.Grow(len(p.Args) + 3)
	b.WriteByte('(')
	for _, t := range p.Args {
		b.WriteByte(t.Code())
	}
	b.WriteByte(')')
	b.WriteByte(p.Return.Code())
	return b.String()
}

// Parse scans spec into a Plan.
//
// Failures:
//   - missing "(", an unknown argument code or a missing ")" yields
//     KindUnknownArgumentSpec
//   - a missing or unknown return code, or anything after it, yields
//     KindUnknownReturnSpec
func Parse(spec string) (*Plan, error) {
	pos := skipSpace(spec, 0)
	if pos >= len(spec) || spec[pos] != '(' {
		return nil, errors.UnknownArgumentSpec(spec, pos, "expected '('")
	}
	pos++

	plan := &Plan{}
	for {
		pos = skipSpace(spec, pos)
		if pos >= len(spec) {
			return nil, errors.UnknownArgumentSpec(spec, pos, "missing ')'")
		}
		c := spec[pos]
		if c == ')' {
			pos++
			break
		}
		tag, ok := dyncall.TagForCode(c)
		if !ok {
			return nil, errors.UnknownArgumentSpec(spec, pos, "unknown argument code")
		}
		plan.Args = append(plan.Args, tag)
		pos++
	}

	pos = skipSpace(spec, pos)
	if pos >= len(spec) {
		return nil, errors.UnknownReturnSpec(errors.PhaseParse, spec, "missing return code")
	}
	tag, ok := dyncall.TagForCode(spec[pos])
	if !ok {
		return nil, errors.UnknownReturnSpec(errors.PhaseParse, spec, "unknown return code "+quoteByte(spec[pos]))
	}
	plan.Return = tag

	if rest := skipSpace(spec, pos+1); rest < len(spec) {
		return nil, errors.UnknownReturnSpec(errors.PhaseParse, spec, "trailing characters after return code")
	}
	return plan, nil
}

// MustParse is like Parse but panics on error. For static signatures.
func MustParse(spec string) *Plan {
	p, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return p
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func quoteByte(c byte) string {
	return "'" + string(rune(c)) + "'"
}
