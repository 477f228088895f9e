// Package config loads dyncall.yaml, the settings shared by the command
// line and embedders: session size, default convention, library lookup
// and wasm runtime limits.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/dyncall/callvm"
	"github.com/wippyai/dyncall/dispatch"
	"github.com/wippyai/dyncall/errors"
	"github.com/wippyai/dyncall/library"
)

// FileName is the config file looked up by FindConfig.
const FileName = "dyncall.yaml"

// Config is the top-level dyncall.yaml document.
type Config struct {
	// Aliases map short library names to file names, merged over the
	// platform defaults (e.g. libm: libm.so.6).
	Aliases map[string]string `yaml:"aliases,omitempty"`

	// DefaultConvention applies to calls that do not name one.
	DefaultConvention string `yaml:"default_convention,omitempty"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`

	// SearchPaths are directories tried for bare library names.
	SearchPaths []string `yaml:"search_paths,omitempty"`

	Wasm WasmConfig `yaml:"wasm"`

	// SessionBytes is the argument stack capacity of a call session.
	SessionBytes int `yaml:"session_bytes,omitempty"`
}

// WasmConfig holds settings for the wasm library backend.
type WasmConfig struct {
	// CloseOnContextDone stops running wasm calls when their context ends.
	// Defaults to true.
	CloseOnContextDone *bool `yaml:"close_on_context_done,omitempty"`

	// MemoryLimitPages caps linear memory in 64KiB pages. 0 means the
	// wazero default.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a dyncall.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "reading config "+path)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses dyncall.yaml content. path is used only in errors.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parsing "+path)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, path)
	}
	return &cfg, nil
}

// FindConfig searches for dyncall.yaml (or dyncall.yml) from dir upwards.
// It returns "" and a nil error when there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range []string{FileName, "dyncall.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) setDefaults() {
	if c.SessionBytes == 0 {
		c.SessionBytes = callvm.DefaultSessionBytes
	}
	if c.DefaultConvention == "" {
		c.DefaultConvention = "default"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Wasm.CloseOnContextDone == nil {
		enabled := true
		c.Wasm.CloseOnContextDone = &enabled
	}
}

// Validate reports the first semantic error in c.
func (c *Config) Validate() error {
	if c.SessionBytes < 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("session_bytes must not be negative, got %d", c.SessionBytes))
	}
	if c.SessionBytes%callvm.SlotSize != 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("session_bytes must be a multiple of %d, got %d", callvm.SlotSize, c.SessionBytes))
	}
	if _, err := callvm.ParseConvention(c.DefaultConvention); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("log_level: %v", err))
	}
	for name, target := range c.Aliases {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(target) == "" {
			return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("aliases: empty entry %q: %q", name, target))
		}
	}
	for i, dir := range c.SearchPaths {
		if dir == "" {
			return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("search_paths[%d] is empty", i))
		}
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Convention returns the configured default convention.
func (c *Config) Convention() callvm.Convention {
	conv, err := callvm.ParseConvention(c.DefaultConvention)
	if err != nil {
		return callvm.ConventionDefault
	}
	return conv
}

// Resolver builds the library name resolver.
func (c *Config) Resolver() *library.Resolver {
	return library.NewResolver(c.Aliases, c.SearchPaths...)
}

// WasmOptions returns the wasm loader options.
func (c *Config) WasmOptions() []library.WasmOption {
	opts := []library.WasmOption{}
	if c.Wasm.CloseOnContextDone != nil {
		opts = append(opts, library.WithCloseOnContextDone(*c.Wasm.CloseOnContextDone))
	}
	if c.Wasm.MemoryLimitPages > 0 {
		opts = append(opts, library.WithMemoryLimitPages(c.Wasm.MemoryLimitPages))
	}
	return opts
}

// Loader builds a loader routing wasm modules to wazero and everything
// else to the native backend.
func (c *Config) Loader(wasmOpts ...library.WasmOption) *library.Mux {
	opts := append(c.WasmOptions(), wasmOpts...)
	return library.NewMux(library.NewNative(c.Resolver()), library.NewWasm(opts...))
}

// DispatchOptions returns the dispatcher options derived from c.
func (c *Config) DispatchOptions() []dispatch.Option {
	return []dispatch.Option{
		dispatch.WithSessionBytes(c.SessionBytes),
		dispatch.WithDefaultConvention(c.Convention()),
	}
}
