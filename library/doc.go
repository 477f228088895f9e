// Package library opens shared libraries and resolves their symbols.
//
// Two backends implement Loader:
//
//   - the native loader uses dlopen/dlsym and calls through libffi. It needs
//     cgo and libffi on Linux; build with -tags noffi to leave it out.
//   - the wasm loader compiles core WebAssembly modules with wazero and
//     exposes their exported functions as symbols.
//
// Mux routes paths ending in ".wasm" to the wasm loader and everything else
// to the native loader.
//
// A Handle owns the loaded library. Functions returned by Lookup are only
// valid until the Handle is closed, and Close must be called exactly once.
// Handles are never cached or shared between calls.
package library
