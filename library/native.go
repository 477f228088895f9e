package library

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/dyncall/errors"
)

// NativeLoader loads shared objects through the platform dynamic linker.
type NativeLoader struct {
	resolver *Resolver
}

// NewNative creates a native loader. A nil resolver uses the default aliases
// and no search paths.
func NewNative(resolver *Resolver) *NativeLoader {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &NativeLoader{resolver: resolver}
}

// Open implements Loader. Each candidate from the resolver is tried in turn;
// the error reports every failed attempt.
func (l *NativeLoader) Open(ctx context.Context, path string) (Handle, error) {
	if !NativeAvailable {
		return nil, errors.LibraryLoadFailed(path, errors.Unsupported(errors.PhaseLoad, "native libraries in this build"))
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.LibraryLoadFailed(path, err)
	}

	var causes error
	for _, candidate := range l.resolver.Candidates(path) {
		h, err := openNative(candidate)
		if err == nil {
			Logger().Debug("native library opened",
				zap.String("path", path),
				zap.String("resolved", candidate))
			return h, nil
		}
		causes = multierr.Append(causes, err)
	}
	return nil, errors.LibraryLoadFailed(path, causes)
}
