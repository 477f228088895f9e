//go:build linux && cgo && !noffi

package library

/*
#cgo LDFLAGS: -ldl
#cgo pkg-config: libffi
#include <ffi.h>
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

// Must match the order of callvm.Convention.
enum {
	DC_CONV_DEFAULT = 0,
	DC_CONV_CDECL,
	DC_CONV_SYSV,
	DC_CONV_STDCALL,
	DC_CONV_FASTCALL,
	DC_CONV_THISCALL,
	DC_CONV_UNIX64,
	DC_CONV_WIN64
};

enum {
	DC_KIND_INT64 = 0,
	DC_KIND_DOUBLE = 1
};

// Returns the libffi ABI for a convention, or -1 when this architecture
// has no such convention.
static int dc_abi(int conv) {
	switch (conv) {
	case DC_CONV_DEFAULT:
	case DC_CONV_CDECL:
		return FFI_DEFAULT_ABI;
#if defined(__i386__)
	case DC_CONV_SYSV:
		return FFI_SYSV;
	case DC_CONV_STDCALL:
		return FFI_STDCALL;
	case DC_CONV_FASTCALL:
		return FFI_FASTCALL;
	case DC_CONV_THISCALL:
		return FFI_THISCALL;
#elif defined(__x86_64__)
	case DC_CONV_SYSV:
	case DC_CONV_UNIX64:
		return FFI_UNIX64;
	case DC_CONV_WIN64:
		return FFI_WIN64;
#elif defined(__aarch64__) || defined(__arm__)
	case DC_CONV_SYSV:
		return FFI_SYSV;
#endif
	}
	return -1;
}

static void* dc_dlopen(const char* path, char** err) {
	dlerror();
	void* h = dlopen(path, RTLD_NOW | RTLD_LOCAL);
	*err = h ? NULL : dlerror();
	return h;
}

// Clear dlerror, call dlsym, and return the error (if any) alongside the symbol.
static void* dc_dlsym(void* h, const char* name, char** err) {
	dlerror();
	void* p = dlsym(h, name);
	*err = dlerror();
	return *err ? NULL : p;
}

static const char* dc_dlclose(void* h) {
	return dlclose(h) == 0 ? NULL : dlerror();
}

// Each argument occupies one 8-byte slot of stack.
static int dc_call(void* fn, int abi, int nargs, const uint8_t* kinds,
                   void* stack, int ret_kind, void* ret) {
	ffi_cif cif;
	ffi_type* types[nargs > 0 ? nargs : 1];
	void* values[nargs > 0 ? nargs : 1];
	for (int i = 0; i < nargs; i++) {
		types[i] = kinds[i] == DC_KIND_DOUBLE ? &ffi_type_double : &ffi_type_sint64;
		values[i] = (char*)stack + 8 * i;
	}
	ffi_type* rtype = ret_kind == DC_KIND_DOUBLE ? &ffi_type_double : &ffi_type_sint64;
	ffi_status st = ffi_prep_cif(&cif, (ffi_abi)abi, (unsigned int)nargs, rtype, types);
	if (st != FFI_OK) {
		return (int)st;
	}
	ffi_call(&cif, FFI_FN(fn), ret, values);
	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"runtime"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/callvm"
	"github.com/wippyai/dyncall/errors"
)

// NativeAvailable reports whether this build can call native libraries.
const NativeAvailable = true

func openNative(path string) (Handle, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var cerr *C.char
	h := C.dc_dlopen(cpath, &cerr)
	if h == nil {
		return nil, fmt.Errorf("dlopen %s: %s", path, dlMessage(cerr))
	}
	return &nativeHandle{path: path, ptr: h}, nil
}

func dlMessage(cerr *C.char) string {
	if cerr == nil {
		return "unknown error"
	}
	return C.GoString(cerr)
}

type nativeHandle struct {
	ptr   unsafe.Pointer
	path  string
	state handleState
}

func (h *nativeHandle) Path() string { return h.path }

func (h *nativeHandle) Lookup(name string) (callvm.Function, error) {
	if err := h.state.checkOpen("lookup"); err != nil {
		return nil, err
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var cerr *C.char
	p := C.dc_dlsym(h.ptr, cname, &cerr)
	if cerr != nil {
		return nil, errors.SymbolNotFound(h.path, name, fmt.Errorf("dlsym: %s", C.GoString(cerr)))
	}
	if p == nil {
		return nil, errors.SymbolNotFound(h.path, name, fmt.Errorf("dlsym: null address"))
	}
	return &nativeFunc{name: name, ptr: p}, nil
}

func (h *nativeHandle) Close() error {
	if err := h.state.markClosed(); err != nil {
		return err
	}
	cerr := C.dc_dlclose(h.ptr)
	h.ptr = nil
	if cerr != nil {
		return errors.LibraryUnloadFailed(h.path, fmt.Errorf("dlclose: %s", C.GoString(cerr)))
	}
	Logger().Debug("native library closed", zap.String("path", h.path))
	return nil
}

type nativeFunc struct {
	ptr  unsafe.Pointer
	name string
}

func (f *nativeFunc) Name() string { return f.name }

// Call performs the foreign call. It blocks until the function returns;
// ctx is only checked before the call starts.
func (f *nativeFunc) Call(ctx context.Context, frame *callvm.Frame, ret dyncall.Tag) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(errors.PhaseInvoke, errors.KindInvocationFailed, err, "call "+f.name)
	}

	abi := C.dc_abi(C.int(frame.Convention))
	if abi < 0 {
		return 0, errors.UnsupportedConvention(frame.Convention.String(), "not available on "+runtime.GOARCH)
	}

	kinds := make([]byte, len(frame.Tags))
	for i, t := range frame.Tags {
		kinds[i] = ffiKind(t)
	}

	var kindsPtr *C.uint8_t
	var stackPtr unsafe.Pointer
	if len(kinds) > 0 {
		kindsPtr = (*C.uint8_t)(unsafe.Pointer(&kinds[0]))
		stackPtr = unsafe.Pointer(&frame.Stack[0])
	}

	var result C.uint64_t
	st := C.dc_call(f.ptr, abi, C.int(len(kinds)), kindsPtr, stackPtr, C.int(ffiKind(ret)), unsafe.Pointer(&result))
	runtime.KeepAlive(kinds)
	runtime.KeepAlive(frame)
	if st != 0 {
		return 0, errors.Wrap(errors.PhaseInvoke, errors.KindInvocationFailed,
			fmt.Errorf("ffi_prep_cif status %d", int(st)), "prepare call "+f.name)
	}
	return uint64(result), nil
}

// Must match DC_KIND_* in the preamble.
const (
	kindInt64  byte = 0
	kindDouble byte = 1
)

func ffiKind(t dyncall.Tag) byte {
	if t == dyncall.TagDouble {
		return kindDouble
	}
	return kindInt64
}
