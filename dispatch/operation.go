package dispatch

import "github.com/wippyai/dyncall/host"

// Param describes one positional parameter of the registered operation.
type Param struct {
	Name string
	Type string
	Doc  string
}

// OperationSpec is the registration surface an embedder exposes to its
// host language.
type OperationSpec struct {
	Name   string
	Doc    string
	Result string
	Params []Param
}

// Operation is the single dyncall operation. Its parameters map onto
// Request fields in order.
var Operation = OperationSpec{
	Name:   "dyncall",
	Doc:    "Call a function in a shared library.",
	Result: "integer | double",
	Params: []Param{
		{Name: "library", Type: "file", Doc: "library path or name"},
		{Name: "cconv", Type: "word", Doc: "calling convention"},
		{Name: "symbol", Type: "string", Doc: "exported function name"},
		{Name: "spec", Type: "string", Doc: "signature, e.g. (id)i"},
		{Name: "args", Type: "block", Doc: "argument values"},
	},
}

// RequestFromOperation builds a request from the operation's positional
// parameters.
func RequestFromOperation(library, cconv, symbol, spec string, args []string) (Request, error) {
	values, err := host.ParseLiterals(args)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Library:    library,
		Convention: cconv,
		Symbol:     symbol,
		Spec:       spec,
		Args:       values,
	}, nil
}
