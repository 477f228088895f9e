package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/errors"
	"github.com/wippyai/dyncall/host"
)

type yamlFile struct {
	Calls []yamlCall `yaml:"calls"`
}

type yamlCall struct {
	Expect     *yaml.Node  `yaml:"expect,omitempty"`
	Name       string      `yaml:"name,omitempty"`
	Library    string      `yaml:"library"`
	Convention string      `yaml:"convention,omitempty"`
	Symbol     string      `yaml:"symbol,omitempty"`
	Spec       string      `yaml:"spec,omitempty"`
	WIT        string      `yaml:"wit,omitempty"`
	Args       []yaml.Node `yaml:"args,omitempty"`
}

// ParseYAML parses a YAML manifest. Scalar tags pick the value type: !!int
// is an integer, !!float a double; strings go through host.ParseLiteral, so
// "i:5" and "d:5" also work. path is used only in errors.
func ParseYAML(data []byte, path string) (*Manifest, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parsing "+path)
	}

	m := &Manifest{Path: path}
	for i, c := range f.Calls {
		args := make(host.Values, len(c.Args))
		for j := range c.Args {
			v, err := yamlValue(&c.Args[j])
			if err != nil {
				return nil, manifestError(path, i, fmt.Sprintf("args[%d]", j), err)
			}
			args[j] = v
		}

		var expect dyncall.Value
		if c.Expect != nil {
			v, err := yamlValue(c.Expect)
			if err != nil {
				return nil, manifestError(path, i, "expect", err)
			}
			expect = v
		}

		call, err := callSpec{
			name:       c.Name,
			library:    c.Library,
			convention: c.Convention,
			symbol:     c.Symbol,
			spec:       c.Spec,
			wit:        c.WIT,
		}.build(i, args, expect)
		if err != nil {
			return nil, manifestError(path, i, "", err)
		}
		m.Calls = append(m.Calls, call)
	}
	return m, nil
}

func yamlValue(n *yaml.Node) (dyncall.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("line %d: expected a scalar", n.Line))
	}
	switch n.ShortTag() {
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, fmt.Sprintf("line %d", n.Line))
		}
		return dyncall.Integer(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, fmt.Sprintf("line %d", n.Line))
		}
		return dyncall.Double(f), nil
	case "!!str":
		return host.ParseLiteral(n.Value)
	}
	return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("line %d: unsupported value %s %q", n.Line, n.ShortTag(), n.Value))
}

func manifestError(path string, index int, field string, cause error) *errors.Error {
	p := []string{fmt.Sprintf("calls[%d]", index)}
	if field != "" {
		p = append(p, field)
	}
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(p...).
		Detail("%s", path).
		Cause(cause).
		Build()
}
