// Package dyncall calls functions in shared libraries without compile-time
// knowledge of their signatures.
//
// A call is described by five values: a library path, a calling convention,
// a symbol name, a compact signature string and the typed arguments. The
// signature string lists one code per argument inside parentheses followed by
// the return code:
//
//	(id)i    two arguments (integer, double), integer result
//	(d)d     one double argument, double result
//
// # Architecture Overview
//
//	dyncall/             Root package with the typed value model
//	├── signature/       Signature string parsing into a call plan
//	├── callvm/          Call session: bounded argument stack and invocation
//	├── library/         Library loading (native via libffi, wasm via wazero)
//	├── dispatch/        Load, resolve, marshal, invoke and teardown
//	├── host/            Host value glue: argument accessors and literals
//	├── errors/          Structured error types
//	├── config/          YAML configuration
//	└── manifest/        YAML and HCL call manifests
//
// # Quick Start
//
//	d := dispatch.New(library.NewMux(library.NewNative(nil), library.NewWasm()))
//	v, err := d.DispatchValues(ctx, "libm", "default", "floor", "(d)d", dyncall.Double(2.7))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(v) // 2
//
// # Typed Values
//
// Arguments and results are dyncall.Value, a closed sum of Integer (64-bit
// signed) and Double (IEEE-754 binary64). A value is never coerced to the
// type the signature declares; a disagreement is an error.
//
// # Resource Model
//
// Every call loads the library, builds a fresh call session and releases both
// before returning, on success and on every error path. Nothing is cached
// between calls, so a Dispatcher is safe for concurrent use.
//
// Native calls block until the foreign function returns. There is no timeout
// or cancellation for native code; wasm calls observe context cancellation.
package dyncall
