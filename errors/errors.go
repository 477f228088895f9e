package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates which dispatch step produced the error
type Phase string

const (
	PhaseLoad    Phase = "load"    // library loading
	PhaseResolve Phase = "resolve" // symbol lookup
	PhaseParse   Phase = "parse"   // signature parsing
	PhaseMarshal Phase = "marshal" // argument pushing
	PhaseInvoke  Phase = "invoke"  // native call and result read
	PhaseRuntime Phase = "runtime" // session and handle lifecycle
	PhaseHost    Phase = "host"    // host value conversion
	PhaseConfig  Phase = "config"  // configuration and manifests
)

// Kind categorizes the error
type Kind string

const (
	KindLibraryLoadFailed     Kind = "library_load_failed"
	KindLibraryUnloadFailed   Kind = "library_unload_failed"
	KindSymbolNotFound        Kind = "symbol_not_found"
	KindUnknownArgumentSpec   Kind = "unknown_argument_spec"
	KindUnknownReturnSpec     Kind = "unknown_return_spec"
	KindArgumentTypeMismatch  Kind = "argument_type_mismatch"
	KindArityMismatch         Kind = "arity_mismatch"
	KindCallSessionOverflow   Kind = "call_session_overflow"
	KindUnsupportedConvention Kind = "unsupported_convention"
	KindInvalidState          Kind = "invalid_state"
	KindInvalidInput          Kind = "invalid_input"
	KindUnsupported           Kind = "unsupported"
	KindInvocationFailed      Kind = "invocation_failed"
	KindExpectationFailed     Kind = "expectation_failed"
)

// Error is the structured error type used throughout dyncall
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Want   string
	Got    string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Want != "" || e.Got != "" {
		b.WriteString(": ")
		if e.Want != "" && e.Got != "" {
			b.WriteString("want ")
			b.WriteString(e.Want)
			b.WriteString(", got ")
			b.WriteString(e.Got)
		} else if e.Want != "" {
			b.WriteString("want ")
			b.WriteString(e.Want)
		} else {
			b.WriteString("got ")
			b.WriteString(e.Got)
		}
	}

	if e.Detail != "" {
		if e.Want != "" || e.Got != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// An *Error target matches on phase and kind; a KindOf target on kind only.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return e.Phase == t.Phase && e.Kind == t.Kind
	case kindTarget:
		return e.Kind == Kind(t)
	}
	return false
}

type kindTarget Kind

func (k kindTarget) Error() string { return string(k) }

// IsKind reports whether any *Error in err's tree has the given kind.
// Joined errors (errors.Join, multierr) are searched as well.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, kindTarget(kind))
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PhaseOf returns the phase of the first *Error in err's chain, or "" if none.
func PhaseOf(err error) Phase {
	var e *Error
	if errors.As(err, &e) {
		return e.Phase
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Want sets the expected type or value
func (b *Builder) Want(s string) *Builder {
	b.err.Want = s
	return b
}

// Got sets the actual type or value
func (b *Builder) Got(s string) *Builder {
	b.err.Got = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ArgPath returns the path element for argument i.
func ArgPath(i int) []string {
	return []string{fmt.Sprintf("arg[%d]", i)}
}

// LibraryLoadFailed creates a library load error
func LibraryLoadFailed(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLibraryLoadFailed,
		Detail: fmt.Sprintf("cannot open %q", path),
		Value:  path,
		Cause:  cause,
	}
}

// LibraryUnloadFailed creates a library release error
func LibraryUnloadFailed(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindLibraryUnloadFailed,
		Detail: fmt.Sprintf("cannot release %q", path),
		Value:  path,
		Cause:  cause,
	}
}

// SymbolNotFound creates a missing symbol error
func SymbolNotFound(library, symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindSymbolNotFound,
		Detail: fmt.Sprintf("symbol %q not found in %q", symbol, library),
		Value:  symbol,
		Cause:  cause,
	}
}

// UnknownArgumentSpec creates an error for a bad argument code at offset pos
func UnknownArgumentSpec(spec string, pos int, detail string) *Error {
	e := &Error{
		Phase:  PhaseParse,
		Kind:   KindUnknownArgumentSpec,
		Detail: fmt.Sprintf("%s at offset %d in %q", detail, pos, spec),
	}
	if pos < len(spec) {
		e.Value = string(spec[pos])
	}
	return e
}

// UnknownReturnSpec creates an error for a bad or missing return code
func UnknownReturnSpec(phase Phase, spec string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownReturnSpec,
		Detail: fmt.Sprintf("%s in %q", detail, spec),
		Value:  spec,
	}
}

// ArgumentTypeMismatch creates an error for a value whose tag disagrees with
// the declared tag of argument i
func ArgumentTypeMismatch(i int, want, got string) *Error {
	return &Error{
		Phase: PhaseMarshal,
		Kind:  KindArgumentTypeMismatch,
		Path:  ArgPath(i),
		Want:  want,
		Got:   got,
	}
}

// ArityMismatch creates an error for a declared/supplied argument count mismatch
func ArityMismatch(declared, supplied int) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindArityMismatch,
		Want:   fmt.Sprintf("%d arguments", declared),
		Got:    fmt.Sprintf("%d", supplied),
		Value:  supplied,
		Detail: "signature and argument list disagree",
	}
}

// CallSessionOverflow creates an error for a push beyond session capacity
func CallSessionOverflow(i, need, used, capacity int) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindCallSessionOverflow,
		Path:   ArgPath(i),
		Detail: fmt.Sprintf("need %d bytes, %d of %d used", need, used, capacity),
		Value:  capacity,
	}
}

// UnsupportedConvention creates an error for a convention that cannot be applied
func UnsupportedConvention(name, detail string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindUnsupportedConvention,
		Detail: fmt.Sprintf("calling convention %q: %s", name, detail),
		Value:  name,
	}
}

// InvalidState creates a lifecycle misuse error
func InvalidState(what, detail string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInvalidState,
		Detail: what + ": " + detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported feature error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what + " is not supported",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ExpectationFailed creates an error for a call whose result differs from
// the expected value
func ExpectationFailed(call, want, got string) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindExpectationFailed,
		Detail: fmt.Sprintf("call %q", call),
		Want:   want,
		Got:    got,
	}
}
