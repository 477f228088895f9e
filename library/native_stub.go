//go:build !linux || !cgo || noffi

package library

import (
	"github.com/wippyai/dyncall/errors"
)

// NativeAvailable reports whether this build can call native libraries.
const NativeAvailable = false

func openNative(path string) (Handle, error) {
	return nil, errors.Unsupported(errors.PhaseLoad, "native libraries in this build")
}
