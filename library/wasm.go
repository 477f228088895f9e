package library

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/callvm"
	"github.com/wippyai/dyncall/errors"
	"github.com/wippyai/dyncall/signature"
)

// WasmOption configures a WasmLoader.
type WasmOption func(*WasmLoader)

// WithCompilationCache shares compiled code between handles. Handles
// themselves are never shared.
func WithCompilationCache(c wazero.CompilationCache) WasmOption {
	return func(l *WasmLoader) {
		l.cache = c
	}
}

// WithCloseOnContextDone makes running calls stop when their context is
// cancelled. Enabled by default.
func WithCloseOnContextDone(enabled bool) WasmOption {
	return func(l *WasmLoader) {
		l.closeOnDone = enabled
	}
}

// WithMemoryLimitPages caps each module's linear memory (64KiB pages).
func WithMemoryLimitPages(pages uint32) WasmOption {
	return func(l *WasmLoader) {
		l.memoryLimitPages = pages
	}
}

// WasmLoader loads core WebAssembly modules as libraries. Every handle gets
// its own wazero runtime.
type WasmLoader struct {
	cache            wazero.CompilationCache
	memoryLimitPages uint32
	closeOnDone      bool
}

// NewWasm creates a wasm loader.
func NewWasm(opts ...WasmOption) *WasmLoader {
	l := &WasmLoader{closeOnDone: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open implements Loader by reading and instantiating the module at path.
func (l *WasmLoader) Open(ctx context.Context, path string) (Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.LibraryLoadFailed(path, err)
	}
	return l.OpenBytes(ctx, path, data)
}

// OpenBytes instantiates an in-memory module. name is reported by Path.
func (l *WasmLoader) OpenBytes(ctx context.Context, name string, wasm []byte) (Handle, error) {
	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(l.closeOnDone)
	if l.cache != nil {
		cfg = cfg.WithCompilationCache(l.cache)
	}
	if l.memoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(l.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.LibraryLoadFailed(name, fmt.Errorf("compile failed: %w", err))
	}

	if importsWASI(compiled) {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			_ = rt.Close(ctx)
			return nil, errors.LibraryLoadFailed(name, fmt.Errorf("instantiate WASI: %w", err))
		}
	}

	modCfg := wazero.NewModuleConfig().WithStartFunctions("_initialize")
	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.LibraryLoadFailed(name, fmt.Errorf("instantiate failed: %w", err))
	}

	Logger().Debug("wasm library opened",
		zap.String("path", name),
		zap.Int("exports", len(compiled.ExportedFunctions())))

	return &wasmHandle{path: name, runtime: rt, module: mod}, nil
}

func importsWASI(compiled wazero.CompiledModule) bool {
	for _, def := range compiled.ImportedFunctions() {
		if mod, _, ok := def.Import(); ok && mod == wasi_snapshot_preview1.ModuleName {
			return true
		}
	}
	return false
}

type wasmHandle struct {
	runtime wazero.Runtime
	module  api.Module
	path    string
	state   handleState
}

func (h *wasmHandle) Path() string { return h.path }

func (h *wasmHandle) Lookup(name string) (callvm.Function, error) {
	if err := h.state.checkOpen("lookup"); err != nil {
		return nil, err
	}
	fn := h.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.SymbolNotFound(h.path, name, nil)
	}
	return &wasmFunc{name: name, fn: fn}, nil
}

// Exports lists the exported functions and the plans derived from their types.
// Exports whose types have no scalar mapping are omitted.
func (h *wasmHandle) Exports() map[string]*signature.Plan {
	out := make(map[string]*signature.Plan)
	for name, def := range h.module.ExportedFunctionDefinitions() {
		plan, err := signature.FromValueTypes(def.ParamTypes(), def.ResultTypes())
		if err == nil {
			out[name] = plan
		}
	}
	return out
}

func (h *wasmHandle) Close() error {
	if err := h.state.markClosed(); err != nil {
		return err
	}
	if err := h.runtime.Close(context.Background()); err != nil {
		return errors.LibraryUnloadFailed(h.path, err)
	}
	Logger().Debug("wasm library closed", zap.String("path", h.path))
	return nil
}

// Exporter is implemented by handles that can enumerate their functions.
type Exporter interface {
	Exports() map[string]*signature.Plan
}

type wasmFunc struct {
	fn   api.Function
	name string
}

func (f *wasmFunc) Name() string { return f.name }

func (f *wasmFunc) Call(ctx context.Context, frame *callvm.Frame, ret dyncall.Tag) (uint64, error) {
	if !frame.Convention.IsDefaultC() {
		return 0, errors.UnsupportedConvention(frame.Convention.String(), "wasm functions only use the default convention")
	}

	def := f.fn.Definition()
	params, results := def.ParamTypes(), def.ResultTypes()

	if len(params) != len(frame.Tags) {
		e := errors.ArityMismatch(len(params), len(frame.Tags))
		e.Detail = fmt.Sprintf("export %q takes %d parameters", f.name, len(params))
		return 0, e
	}
	if len(results) != 1 {
		return 0, errors.UnknownReturnSpec(errors.PhaseInvoke, f.name, fmt.Sprintf("export returns %d values", len(results)))
	}
	if want, _ := signature.TagForValueType(results[0]); want != ret {
		return 0, errors.New(errors.PhaseInvoke, errors.KindUnknownReturnSpec).
			Want(ret.String()).
			Got(api.ValueTypeName(results[0])).
			Detail("result type of export %q", f.name).
			Build()
	}

	stack := make([]uint64, max(len(params), 1))
	for i, vt := range params {
		want, _ := signature.TagForValueType(vt)
		if want != frame.Tags[i] {
			return 0, errors.New(errors.PhaseMarshal, errors.KindArgumentTypeMismatch).
				Path(errors.ArgPath(i)...).
				Want(api.ValueTypeName(vt)).
				Got(frame.Tags[i].String()).
				Build()
		}
		if vt == api.ValueTypeI32 && !fitsI32(frame.Slot(i)) {
			return 0, errors.New(errors.PhaseMarshal, errors.KindArgumentTypeMismatch).
				Path(errors.ArgPath(i)...).
				Want("i32").
				Got(frame.Tags[i].String()).
				Value(int64(frame.Slot(i))).
				Detail("integer does not fit parameter %d of export %q", i, f.name).
				Build()
		}
		stack[i] = lowerSlot(vt, frame.Slot(i))
	}

	if err := f.fn.CallWithStack(ctx, stack); err != nil {
		return 0, errors.Wrap(errors.PhaseInvoke, errors.KindInvocationFailed, err, "call "+f.name)
	}
	return liftSlot(results[0], stack[0]), nil
}

func fitsI32(raw uint64) bool {
	n := int64(raw)
	return n >= math.MinInt32 && n <= math.MaxInt32
}

// lowerSlot converts a 64-bit argument slot to the wasm stack encoding of vt.
// i32 slots must already fit; f32 slots round to the nearest float32.
func lowerSlot(vt api.ValueType, raw uint64) uint64 {
	switch vt {
	case api.ValueTypeI32:
		return api.EncodeI32(int32(int64(raw)))
	case api.ValueTypeF32:
		return api.EncodeF32(float32(math.Float64frombits(raw)))
	default:
		return raw
	}
}

// liftSlot widens a wasm result to a 64-bit result slot.
func liftSlot(vt api.ValueType, raw uint64) uint64 {
	switch vt {
	case api.ValueTypeI32:
		return uint64(int64(api.DecodeI32(raw)))
	case api.ValueTypeF32:
		return math.Float64bits(float64(api.DecodeF32(raw)))
	default:
		return raw
	}
}
