package serializer

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// YAML converts YAML documents through the yaml.v3 node tree, so mapping
// order and scalar tags are honored.
type YAML struct{}

// Mime implements Serializer.
func (YAML) Mime() string { return MimeYAML }

// Decode implements Serializer. An empty document decodes to null.
func (YAML) Decode(data []byte) (cty.Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return cty.NilVal, fmt.Errorf("failed to decode YAML document: %w", err)
	}
	if root.Kind == 0 {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	return nodeToValue(&root, cty.Path{})
}

func nodeToValue(n *yaml.Node, path cty.Path) (cty.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return nodeToValue(n.Content[0], path)
	case yaml.AliasNode:
		return nodeToValue(n.Alias, path)
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return cty.EmptyTupleVal, nil
		}
		vals := make([]cty.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := nodeToValue(c, path.Index(cty.NumberIntVal(int64(i))))
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = v
		}
		return cty.TupleVal(vals), nil
	case yaml.MappingNode:
		attrs := make(map[string]cty.Value, len(n.Content)/2)
		for i := 0; i < len(n.Content)-1; i += 2 {
			k, vn := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return cty.NilVal, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			if k.Tag == "!!merge" {
				return cty.NilVal, fmt.Errorf("line %d: merge keys are not supported", k.Line)
			}
			if _, dup := attrs[k.Value]; dup {
				return cty.NilVal, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
			}
			v, err := nodeToValue(vn, path.GetAttr(k.Value))
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k.Value] = v
		}
		if len(attrs) == 0 {
			return cty.EmptyObjectVal, nil
		}
		return cty.ObjectVal(attrs), nil
	case yaml.ScalarNode:
		return scalarToValue(n)
	}
	return cty.NilVal, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func scalarToValue(n *yaml.Node) (cty.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return cty.NullVal(cty.DynamicPseudoType), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return cty.NilVal, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return cty.BoolVal(b), nil
	case "!!int", "!!float":
		switch strings.ToLower(n.Value) {
		case ".inf", "+.inf":
			return cty.PositiveInfinity, nil
		case "-.inf":
			return cty.NegativeInfinity, nil
		case ".nan":
			return cty.NilVal, fmt.Errorf("line %d: NaN cannot be represented", n.Line)
		}
		if n.ShortTag() == "!!int" {
			var i big.Int
			if _, ok := i.SetString(strings.ReplaceAll(n.Value, "_", ""), 0); ok {
				return cty.NumberVal(new(big.Float).SetInt(&i)), nil
			}
		}
		v, err := cty.ParseNumberVal(strings.ReplaceAll(n.Value, "_", ""))
		if err != nil {
			return cty.NilVal, fmt.Errorf("line %d: invalid number %q", n.Line, n.Value)
		}
		return v, nil
	default:
		return cty.StringVal(n.Value), nil
	}
}

// Encode implements Serializer. Object attributes are written in sorted order.
func (YAML) Encode(v cty.Value) ([]byte, error) {
	if v.Type() == cty.NilType {
		return nil, fmt.Errorf("cannot encode an empty value")
	}
	n, err := valueToNode(v, cty.Path{})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("failed to encode YAML document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func valueToNode(v cty.Value, path cty.Path) (*yaml.Node, error) {
	if !v.IsKnown() {
		return nil, path.NewErrorf("value is not known")
	}
	if v.IsNull() {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.AsString()}, nil
	case ty == cty.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(v.True())}, nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		switch {
		case bf.IsInf():
			if bf.Sign() < 0 {
				return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "-.inf"}, nil
			}
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".inf"}, nil
		case bf.IsInt():
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: bf.Text('f', -1)}, nil
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: bf.Text('g', -1)}, nil
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		i := 0
		for it := v.ElementIterator(); it.Next(); i++ {
			_, ev := it.Element()
			c, err := valueToNode(ev, path.Index(cty.NumberIntVal(int64(i))))
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	case ty.IsObjectType() || ty.IsMapType():
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		// ElementIterator yields object and map keys in lexical order.
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			c, err := valueToNode(ev, path.GetAttr(k.AsString()))
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k.AsString()}, c)
		}
		return n, nil
	}
	return nil, path.NewErrorf("cannot encode %s as YAML", ty.FriendlyName())
}
