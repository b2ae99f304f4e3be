// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeLiteral decodes a value literal of a result frame line, written in
// Python literal notation:
//
//   - dicts {'k': v}, lists [a, b], and tuples (a, b) or (a,), with tuples
//     decoding into sequences the same as lists;
//   - strings in single, double, or triple quotes, optionally with an u
//     prefix, and with Python's backslash escapes (\t, \n, \xhh, \uhhhh,
//     octal, and so on);
//   - integers (including 0x, 0o, 0b, and underscores) and floats, with an
//     optional sign;
//   - True, False, None, as well as true, false, and null.
//
// Mapping keys must be scalars and end up as strings. Everything else is
// rejected, such as bytes and raw strings, sets, complex numbers, bare names,
// and parenthesized expressions.
func DecodeLiteral(literal string) (any, error) {
	flow, err := pythonToFlow(literal)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(flow), &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, errors.New("empty value literal")
	}
	return literalValue(doc.Content[0])
}

func literalValue(n *yaml.Node) (any, error) {
	if n.Anchor != "" {
		return nil, fmt.Errorf("anchor &%s not allowed", n.Anchor)
	}
	if n.Style&yaml.TaggedStyle != 0 {
		return nil, fmt.Errorf("tag %s not allowed", n.Tag)
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return literalScalar(n)
	case yaml.SequenceNode:
		seq := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := literalValue(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for idx := 0; idx+1 < len(n.Content); idx += 2 {
			k, v := n.Content[idx], n.Content[idx+1]
			if k.Kind != yaml.ScalarNode {
				return nil, errors.New("mapping keys must be scalars")
			}
			if k.Tag == "!!merge" {
				return nil, errors.New("merge keys not allowed")
			}
			key, err := literalValue(k)
			if err != nil {
				return nil, err
			}
			value, err := literalValue(v)
			if err != nil {
				return nil, err
			}
			if key == nil {
				m[""] = value
				continue
			}
			m[fmt.Sprint(key)] = value
		}
		return m, nil
	case yaml.AliasNode:
		return nil, errors.New("aliases not allowed")
	}
	return nil, fmt.Errorf("unsupported value literal at line %d", n.Line)
}

func literalScalar(n *yaml.Node) (any, error) {
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return n.Value, nil
	}
	switch n.Value {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	}
	switch n.Tag {
	case "!!int", "!!float", "!!bool", "!!null":
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("unsupported scalar type %s", n.Tag)
}
