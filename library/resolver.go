package library

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Resolver expands a library name into the paths tried when loading it.
type Resolver struct {
	aliases     map[string]string
	searchPaths []string
	suffix      string
}

// DefaultAliases returns the built-in short names for common system
// libraries on the running platform.
func DefaultAliases() map[string]string {
	switch runtime.GOOS {
	case "linux":
		return map[string]string{
			"libm":       "libm.so.6",
			"libc":       "libc.so.6",
			"libdl":      "libdl.so.2",
			"libpthread": "libpthread.so.0",
		}
	case "darwin":
		return map[string]string{
			"libm": "libSystem.B.dylib",
			"libc": "libSystem.B.dylib",
		}
	default:
		return map[string]string{}
	}
}

// NewResolver creates a resolver. Explicit aliases are merged over the
// defaults; searchPaths are tried in order for bare names.
func NewResolver(aliases map[string]string, searchPaths ...string) *Resolver {
	merged := DefaultAliases()
	for k, v := range aliases {
		merged[k] = v
	}
	return &Resolver{
		aliases:     merged,
		searchPaths: searchPaths,
		suffix:      sharedSuffix(runtime.GOOS),
	}
}

// Candidates returns the load attempts for name, in order: the name as
// given, its alias, the name with the platform's shared-library suffix,
// then each of those inside every search path.
func (r *Resolver) Candidates(name string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			names = append(names, s)
		}
	}

	add(name)
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return names
	}

	add(r.aliases[name])
	if !strings.Contains(name, r.suffix) {
		add(name + r.suffix)
	}

	bare := append([]string(nil), names...)
	for _, dir := range r.searchPaths {
		for _, n := range bare {
			add(filepath.Join(dir, n))
		}
	}
	return names
}

func sharedSuffix(goos string) string {
	switch goos {
	case "darwin", "ios":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}
