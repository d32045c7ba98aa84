// Package openapi renders the registered descriptors as OpenAPI component
// schemas for one API version.
package openapi

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/slurmcodec/internal/ctxlog"
	"github.com/vk/slurmcodec/internal/flagbit"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/vk/slurmcodec/internal/sentinel"
	"github.com/zclconf/go-cty/cty"
)

// Version of the OpenAPI document format produced.
const Version = "3.0.3"

// Source lists descriptors. *registry.Registry implements it.
type Source interface {
	All() []*parser.Parser
}

// Generator renders schemas for one version and sentinel mode.
type Generator struct {
	version parser.Version
	mode    sentinel.Mode
}

// New returns a Generator. Fields deprecated at or before version are left
// out; the zero version keeps every field.
func New(version parser.Version, mode sentinel.Mode) *Generator {
	return &Generator{version: version, mode: mode}
}

// Document renders a complete document around the component schemas.
func (g *Generator) Document(ctx context.Context, src Source, title string) (cty.Value, error) {
	schemas, err := g.Schemas(ctx, src)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{
		"openapi": cty.StringVal(Version),
		"info": cty.ObjectVal(map[string]cty.Value{
			"title":   cty.StringVal(title),
			"version": cty.StringVal(g.version.String()),
		}),
		"paths": cty.EmptyObjectVal,
		"components": cty.ObjectVal(map[string]cty.Value{
			"schemas": schemas,
		}),
	}), nil
}

// Schemas renders one schema per descriptor, keyed by type id.
func (g *Generator) Schemas(ctx context.Context, src Source) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	out := make(map[string]cty.Value)
	for _, p := range src.All() {
		s, err := g.schema(p)
		if err != nil {
			return cty.NilVal, err
		}
		out[string(p.Type)] = s
	}
	logger.Debug("Schemas generated.", "count", len(out), "version", g.version.String(), "mode", g.mode.String())
	if len(out) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(out), nil
}

// Ref returns the reference to the schema of id.
func Ref(id parser.TypeID) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"$ref": cty.StringVal("#/components/schemas/" + string(id)),
	})
}

func (g *Generator) hidden(v parser.Version) bool {
	return v != 0 && g.version != 0 && g.version >= v
}

func (g *Generator) schema(p *parser.Parser) (cty.Value, error) {
	attrs := map[string]cty.Value{}
	switch m := p.Model.(type) {
	case *parser.Simple:
		g.leaf(attrs, p.SchemaType)
		direction(attrs, m.Direction)
	case *parser.Complex:
		g.leaf(attrs, p.SchemaType)
		direction(attrs, m.Direction)
	case *parser.Array:
		root := newNode()
		for _, f := range m.Fields {
			g.field(root, f)
		}
		for k, v := range root.object() {
			attrs[k] = v
		}
	case *parser.List:
		array(attrs, Ref(m.Elem))
	case *parser.NTArray:
		array(attrs, Ref(m.Elem))
	case *parser.NTPtrArray:
		array(attrs, Ref(m.Elem))
	case *parser.Pointer:
		attrs["allOf"] = cty.TupleVal([]cty.Value{Ref(m.Target)})
		if m.AllowNull {
			attrs["nullable"] = cty.True
		}
	case *parser.FlagArray:
		array(attrs, cty.ObjectVal(map[string]cty.Value{
			"type": cty.StringVal("string"),
			"enum": stringTuple(flagNames(m.Flags)),
		}))
	default:
		return cty.NilVal, fmt.Errorf("parser '%s': unsupported model %T", p.Type, p.Model)
	}
	if p.Description != "" {
		attrs["description"] = cty.StringVal(p.Description)
	}
	if g.hidden(p.Deprecated) {
		attrs["deprecated"] = cty.True
	}
	return object(attrs), nil
}

func (g *Generator) leaf(attrs map[string]cty.Value, t parser.SchemaType) {
	switch t {
	case parser.SchemaString, parser.SchemaInteger, parser.SchemaNumber, parser.SchemaBoolean, parser.SchemaObject:
		attrs["type"] = cty.StringVal(string(t))
	case parser.SchemaStringArray:
		array(attrs, typed("string"))
	case parser.SchemaObjectArray:
		array(attrs, typed("object"))
	case parser.SchemaNoValInteger:
		g.noVal(attrs, "integer")
	case parser.SchemaNoValNumber:
		g.noVal(attrs, "number")
	}
}

// noVal renders a number that may be unset or unbounded in the dump mode of
// the generator.
func (g *Generator) noVal(attrs map[string]cty.Value, num string) {
	if g.mode == sentinel.Verbose {
		attrs["type"] = cty.StringVal("object")
		attrs["properties"] = cty.ObjectVal(map[string]cty.Value{
			sentinel.KeyPresent:   typed("boolean"),
			sentinel.KeyUnbounded: typed("boolean"),
			sentinel.KeyValue:     typed(num),
		})
		return
	}
	attrs["nullable"] = cty.True
	attrs["oneOf"] = cty.TupleVal([]cty.Value{
		typed(num),
		cty.ObjectVal(map[string]cty.Value{
			"type": cty.StringVal("string"),
			"enum": stringTuple([]string{sentinel.InfinityString}),
		}),
	})
}

func (g *Generator) field(root *node, f *parser.Field) {
	if f == nil || f.Kind == parser.FieldSkip || !f.Advertised(g.version) {
		return
	}
	segs := f.Segments()
	if len(segs) == 0 {
		return
	}
	parent := root
	for _, seg := range segs[:len(segs)-1] {
		parent = parent.child(seg)
	}
	key := segs[len(segs)-1]
	n := parent.child(key)
	if f.Required {
		parent.required[key] = true
	}

	attrs := map[string]cty.Value{}
	switch f.Kind {
	case parser.FieldRemoved:
		attrs["deprecated"] = cty.True
		attrs["readOnly"] = cty.True
		attrs["description"] = cty.StringVal("Removed field, reported as its last value until withdrawn")
		n.leaves = append(n.leaves, object(attrs))
		return
	default:
		if f.Deprecated == 0 && f.Description == "" {
			n.leaves = append(n.leaves, Ref(f.Type))
			return
		}
		attrs["allOf"] = cty.TupleVal([]cty.Value{Ref(f.Type)})
	}
	if f.Deprecated != 0 {
		attrs["deprecated"] = cty.True
	}
	if f.Description != "" {
		attrs["description"] = cty.StringVal(f.Description)
	}
	n.leaves = append(n.leaves, object(attrs))
}

// node is one object level of a record schema.
type node struct {
	leaves   []cty.Value
	children map[string]*node
	required map[string]bool
}

func newNode() *node {
	return &node{children: map[string]*node{}, required: map[string]bool{}}
}

func (n *node) child(key string) *node {
	c, ok := n.children[key]
	if !ok {
		c = newNode()
		n.children[key] = c
	}
	return c
}

func (n *node) value() cty.Value {
	switch {
	case len(n.children) > 0:
		return object(n.object())
	case len(n.leaves) == 1:
		return n.leaves[0]
	case len(n.leaves) > 1:
		return cty.ObjectVal(map[string]cty.Value{"oneOf": cty.TupleVal(n.leaves)})
	}
	return cty.EmptyObjectVal
}

func (n *node) object() map[string]cty.Value {
	props := make(map[string]cty.Value, len(n.children))
	for k, c := range n.children {
		props[k] = c.value()
	}
	attrs := map[string]cty.Value{
		"type":       cty.StringVal("object"),
		"properties": object(props),
	}
	if len(n.required) > 0 {
		req := make([]string, 0, len(n.required))
		for k := range n.required {
			req = append(req, k)
		}
		sort.Strings(req)
		attrs["required"] = stringTuple(req)
	}
	return attrs
}

func direction(attrs map[string]cty.Value, d parser.Direction) {
	switch d {
	case parser.DumpOnly:
		attrs["readOnly"] = cty.True
	case parser.ParseOnly:
		attrs["writeOnly"] = cty.True
	}
}

func array(attrs map[string]cty.Value, items cty.Value) {
	attrs["type"] = cty.StringVal("array")
	attrs["items"] = items
}

func typed(t string) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{"type": cty.StringVal(t)})
}

func object(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

func stringTuple(ss []string) cty.Value {
	if len(ss) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.TupleVal(vals)
}

func flagNames(set flagbit.Set) []string {
	var out []string
	for _, e := range set {
		if !e.Hidden {
			out = append(out, e.Name)
		}
	}
	return out
}
