package library

import (
	"context"
	"strings"

	"github.com/wippyai/dyncall/callvm"
	"github.com/wippyai/dyncall/errors"
)

// Loader opens libraries.
type Loader interface {
	// Open loads the library at path. Failures are KindLibraryLoadFailed.
	Open(ctx context.Context, path string) (Handle, error)
}

// Handle is an exclusively owned, loaded library.
type Handle interface {
	// Path returns the path the library was actually loaded from.
	Path() string
	// Lookup resolves an exported function. Failures are KindSymbolNotFound.
	Lookup(name string) (callvm.Function, error)
	// Close releases the library. A second Close returns KindInvalidState
	// without releasing again.
	Close() error
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (Handle, error)

func (f LoaderFunc) Open(ctx context.Context, path string) (Handle, error) {
	return f(ctx, path)
}

// IsWasmPath reports whether path names a WebAssembly module.
func IsWasmPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".wasm")
}

// Mux routes library paths to a backend by file type.
type Mux struct {
	native Loader
	wasm   Loader
}

// NewMux creates a router. Either loader may be nil, in which case paths of
// that kind fail to load.
func NewMux(native, wasm Loader) *Mux {
	return &Mux{native: native, wasm: wasm}
}

// Open implements Loader.
func (m *Mux) Open(ctx context.Context, path string) (Handle, error) {
	if IsWasmPath(path) {
		if m.wasm == nil {
			return nil, errors.LibraryLoadFailed(path, errors.Unsupported(errors.PhaseLoad, "wasm libraries"))
		}
		return m.wasm.Open(ctx, path)
	}
	if m.native == nil {
		return nil, errors.LibraryLoadFailed(path, errors.Unsupported(errors.PhaseLoad, "native libraries"))
	}
	return m.native.Open(ctx, path)
}

// handleState guards the exactly-once release of a handle.
type handleState struct {
	closed bool
}

func (s *handleState) checkOpen(op string) error {
	if s.closed {
		return errors.InvalidState("library handle", op+" after close")
	}
	return nil
}

func (s *handleState) markClosed() error {
	if s.closed {
		return errors.InvalidState("library handle", "already closed")
	}
	s.closed = true
	return nil
}
