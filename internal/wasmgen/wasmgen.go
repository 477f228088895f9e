// Package wasmgen encodes minimal core WebAssembly modules.
//
// It covers the subset needed to stand up scalar test libraries: function
// types, function imports, exported functions and local-free bodies.
package wasmgen

import (
	"github.com/tetratelabs/wazero/api"
)

// Section IDs
const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionExport   byte = 7
	sectionCode     byte = 10
)

// Opcodes used by the canned functions
const (
	OpEnd          byte = 0x0b
	OpLocalGet     byte = 0x20
	OpSelect       byte = 0x1b
	OpI64Const     byte = 0x42
	OpI64LtS       byte = 0x53
	OpI64Add       byte = 0x7c
	OpI64Sub       byte = 0x7d
	OpF64Floor     byte = 0x9c
	OpF64Add       byte = 0xa0
	OpI64TruncF64S byte = 0xb0
)

// Func is an exported function. Body holds the instructions without the
// locals header and without the final end opcode.
type Func struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Body    []byte
}

// Import is an imported function.
type Import struct {
	Module  string
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// Module encodes a module exporting funcs.
func Module(funcs ...Func) []byte {
	return ModuleWithImports(nil, funcs...)
}

// ModuleWithImports encodes a module that imports imports and exports funcs.
func ModuleWithImports(imports []Import, funcs ...Func) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var types []byte
	types = appendU32(types, uint32(len(imports)+len(funcs)))
	for _, im := range imports {
		types = appendFuncType(types, im.Params, im.Results)
	}
	for _, f := range funcs {
		types = appendFuncType(types, f.Params, f.Results)
	}
	out = appendSection(out, sectionType, types)

	if len(imports) > 0 {
		var sec []byte
		sec = appendU32(sec, uint32(len(imports)))
		for i, im := range imports {
			sec = appendName(sec, im.Module)
			sec = appendName(sec, im.Name)
			sec = append(sec, 0x00)
			sec = appendU32(sec, uint32(i))
		}
		out = appendSection(out, sectionImport, sec)
	}

	base := uint32(len(imports))

	var fsec []byte
	fsec = appendU32(fsec, uint32(len(funcs)))
	for i := range funcs {
		fsec = appendU32(fsec, base+uint32(i))
	}
	out = appendSection(out, sectionFunction, fsec)

	var esec []byte
	esec = appendU32(esec, uint32(len(funcs)))
	for i, f := range funcs {
		esec = appendName(esec, f.Name)
		esec = append(esec, 0x00)
		esec = appendU32(esec, base+uint32(i))
	}
	out = appendSection(out, sectionExport, esec)

	var csec []byte
	csec = appendU32(csec, uint32(len(funcs)))
	for _, f := range funcs {
		body := make([]byte, 0, len(f.Body)+2)
		body = append(body, 0x00)
		body = append(body, f.Body...)
		body = append(body, OpEnd)
		csec = appendU32(csec, uint32(len(body)))
		csec = append(csec, body...)
	}
	return appendSection(out, sectionCode, csec)
}

// LocalGet returns local.get idx.
func LocalGet(idx uint32) []byte {
	return appendU32([]byte{OpLocalGet}, idx)
}

// I64Const returns i64.const v.
func I64Const(v int64) []byte {
	return appendS64([]byte{OpI64Const}, v)
}

// Concat joins instruction sequences.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Identity returns a function (vt) -> vt that returns its argument.
func Identity(name string, vt api.ValueType) Func {
	return Func{
		Name:    name,
		Params:  []api.ValueType{vt},
		Results: []api.ValueType{vt},
		Body:    LocalGet(0),
	}
}

// Floor returns a function (f64) -> f64 computing floor(x).
func Floor(name string) Func {
	return Func{
		Name:    name,
		Params:  []api.ValueType{api.ValueTypeF64},
		Results: []api.ValueType{api.ValueTypeF64},
		Body:    Concat(LocalGet(0), []byte{OpF64Floor}),
	}
}

// Abs returns a function (i64) -> i64 computing |x|.
func Abs(name string) Func {
	return Func{
		Name:    name,
		Params:  []api.ValueType{api.ValueTypeI64},
		Results: []api.ValueType{api.ValueTypeI64},
		// select(0 - x, x, x < 0)
		Body: Concat(
			I64Const(0), LocalGet(0), []byte{OpI64Sub},
			LocalGet(0),
			LocalGet(0), I64Const(0), []byte{OpI64LtS},
			[]byte{OpSelect},
		),
	}
}

// AddTrunc returns a function (i64, f64) -> i64 computing a + trunc(b).
func AddTrunc(name string) Func {
	return Func{
		Name:    name,
		Params:  []api.ValueType{api.ValueTypeI64, api.ValueTypeF64},
		Results: []api.ValueType{api.ValueTypeI64},
		Body:    Concat(LocalGet(0), LocalGet(1), []byte{OpI64TruncF64S, OpI64Add}),
	}
}

func appendFuncType(b []byte, params, results []api.ValueType) []byte {
	b = append(b, 0x60)
	b = appendU32(b, uint32(len(params)))
	b = append(b, params...)
	b = appendU32(b, uint32(len(results)))
	return append(b, results...)
}

func appendSection(b []byte, id byte, content []byte) []byte {
	b = append(b, id)
	b = appendU32(b, uint32(len(content)))
	return append(b, content...)
}

func appendName(b []byte, s string) []byte {
	b = appendU32(b, uint32(len(s)))
	return append(b, s...)
}

func appendU32(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

func appendS64(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
