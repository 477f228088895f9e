// Package errors provides structured error types for dyncall.
//
// Errors are categorized by Phase (the dispatch step that failed) and Kind
// (error category). The Error type carries the argument path, the expected
// and actual tags, the offending value and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindArgumentTypeMismatch).
//		Path("arg[1]").
//		Want("integer").
//		Got("double").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ArgumentTypeMismatch(1, "integer", "double")
//	err := errors.SymbolNotFound("libm.so.6", "floorx", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// IsKind matches on Kind alone, through wrapping and joined errors.
package errors
