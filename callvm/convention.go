package callvm

import (
	"strings"

	"github.com/wippyai/dyncall/errors"
)

// Convention selects the calling convention for a session.
type Convention uint8

const (
	// ConventionDefault is the platform's default C convention.
	ConventionDefault Convention = iota
	ConventionCDecl
	ConventionSysV
	ConventionStdCall
	ConventionFastCall
	ConventionThisCall
	ConventionUnix64
	ConventionWin64
)

var conventionNames = [...]string{
	ConventionDefault:  "default",
	ConventionCDecl:    "c",
	ConventionSysV:     "sysv",
	ConventionStdCall:  "stdcall",
	ConventionFastCall: "fastcall",
	ConventionThisCall: "thiscall",
	ConventionUnix64:   "unix64",
	ConventionWin64:    "win64",
}

var conventionAliases = map[string]Convention{
	"":      ConventionDefault,
	"cdecl": ConventionCDecl,
	"ms64":  ConventionWin64,
	"x64":   ConventionWin64,
}

// ParseConvention maps a symbolic convention name to a Convention.
// Matching is case-insensitive; the empty name selects the default.
func ParseConvention(name string) (Convention, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if c, ok := conventionAliases[n]; ok {
		return c, nil
	}
	for i, s := range conventionNames {
		if s == n {
			return Convention(i), nil
		}
	}
	return ConventionDefault, errors.UnsupportedConvention(name, "unknown convention")
}

// IsDefaultC reports whether c is satisfied by the platform default C convention.
func (c Convention) IsDefaultC() bool {
	return c == ConventionDefault || c == ConventionCDecl
}

func (c Convention) String() string {
	if int(c) < len(conventionNames) {
		return conventionNames[c]
	}
	return "unknown"
}
