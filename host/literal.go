package host

import (
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/errors"
)

// ParseLiteral converts a textual argument to a value.
//
//	i:<int>    integer
//	d:<float>  double
//	42         integer
//	2.5, 1e3   double
//	inf, nan   double
func ParseLiteral(s string) (dyncall.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.InvalidInput(errors.PhaseHost, "empty literal")
	}

	if prefix, rest, ok := strings.Cut(s, ":"); ok && len(prefix) == 1 {
		tag, known := dyncall.TagForCode(prefix[0])
		if !known {
			return nil, literalError(s, "unknown type prefix "+strconv.Quote(prefix))
		}
		return parseAs(tag, rest)
	}

	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return dyncall.Integer(n), nil
	} else if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange && isIntegerText(s) {
		return nil, literalError(s, "integer out of range")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return dyncall.Double(f), nil
	}
	return nil, literalError(s, "not a number")
}

// ParseLiterals parses each element of ss.
func ParseLiterals(ss []string) (Values, error) {
	out := make(Values, len(ss))
	for i, s := range ss {
		v, err := ParseLiteral(s)
		if err != nil {
			if e, ok := err.(*errors.Error); ok {
				e.Path = errors.ArgPath(i)
			}
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Format renders v the way the command line prints results.
func Format(v dyncall.Value) string {
	if v == nil {
		return "<none>"
	}
	if d, ok := v.(dyncall.Double); ok {
		f := float64(d)
		switch {
		case math.IsNaN(f):
			return "NaN"
		case math.IsInf(f, 1):
			return "+Inf"
		case math.IsInf(f, -1):
			return "-Inf"
		}
		s := d.String()
		if !strings.ContainsAny(s, ".eEN") {
			s += ".0"
		}
		return s
	}
	return v.String()
}

func parseAs(tag dyncall.Tag, s string) (dyncall.Value, error) {
	s = strings.TrimSpace(s)
	switch tag {
	case dyncall.TagInteger:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, literalError(s, "invalid integer")
		}
		return dyncall.Integer(n), nil
	case dyncall.TagDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, literalError(s, "invalid double")
		}
		return dyncall.Double(f), nil
	}
	return nil, literalError(s, "unsupported tag "+tag.String())
}

func isIntegerText(s string) bool {
	s = strings.TrimLeft(s, "+-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func literalError(s, detail string) *errors.Error {
	return errors.New(errors.PhaseHost, errors.KindInvalidInput).
		Value(s).
		Detail("%s", detail).
		Build()
}
