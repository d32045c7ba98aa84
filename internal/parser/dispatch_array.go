package parser

import (
	"sort"
	"strings"

	"github.com/vk/slurmcodec/internal/diag"
	"github.com/zclconf/go-cty/cty"
)

func parseArray(c *Context, p *Parser, m *Array, v cty.Value, dst any, path cty.Path) error {
	if v.IsNull() {
		v = cty.EmptyObjectVal
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return diag.Errorf(diag.CodeInvalidType, path, "%s expects an object, got %s", p.Type, ty.FriendlyName())
	}

	parsedGroups := make(map[int]struct{})
	handledKeys := make(map[string]struct{})

	for i, f := range m.Fields {
		switch f.Kind {
		case FieldSkip:
			continue
		case FieldRemoved:
			if _, ok := lookupKey(v, f.Segments()); ok {
				return diag.Errorf(diag.CodeRemovedField, f.Path(path), "field %q has been removed and can no longer be set", f.Key)
			}
			continue
		}

		if _, done := handledKeys[f.Key]; done {
			continue
		}
		fv, ok := lookupKey(v, f.Segments())
		if !ok {
			if f.Required && !groupParsed(m, f, parsedGroups, v) {
				return diag.Errorf(diag.CodeMissingRequired, f.Path(path), "missing required field %q", f.Key)
			}
			continue
		}
		handledKeys[f.Key] = struct{}{}

		if !f.Advertised(c.version) {
			c.Warn(diag.CodeDeprecatedField, f.Path(path), "field %q is deprecated since %s", f.Key, f.Deprecated)
		}

		if err := parseField(c, m, i, fv, dst, path); err != nil {
			return err
		}
		if f.group >= 0 {
			parsedGroups[f.group] = struct{}{}
		}
	}

	warnUnknown(c, p, m, v, "", path)
	return nil
}

// warnUnknown reports every key of v under prefix that no field declares.
// Objects under a declared prefix are walked so a misspelt leaf is reported
// at its own path.
func warnUnknown(c *Context, p *Parser, m *Array, v cty.Value, prefix string, path cty.Path) {
	attrs := v.AsValueMap()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := prefix + k
		kpath := path.GetAttr(k)
		leaf, known := m.declared[key]
		switch {
		case !known:
			c.Warn(diag.CodeUnknownField, kpath, "%s has no field %q, value ignored", p.Type, strings.ReplaceAll(key, KeySeparator, "."))
		case leaf:
		default:
			kv := attrs[k]
			if kv.IsNull() || !kv.IsKnown() {
				continue
			}
			if ty := kv.Type(); !ty.IsObjectType() && !ty.IsMapType() {
				c.Warn(diag.CodeUnknownField, kpath, "%s expects an object at %q, got %s, value ignored", p.Type, strings.ReplaceAll(key, KeySeparator, "."), ty.FriendlyName())
				continue
			}
			warnUnknown(c, p, m, kv, key+KeySeparator, kpath)
		}
	}
}

// parseField offers fv to the field at index i and to every later overload
// sharing its key, keeping the first that accepts it.
func parseField(c *Context, m *Array, i int, fv cty.Value, dst any, path cty.Path) error {
	f := m.Fields[i]
	candidates := []*Field{f}
	if f.Overloads > 1 {
		for _, o := range m.Fields[i+1:] {
			if o.Key == f.Key && o.Kind != FieldRemoved && o.Kind != FieldSkip {
				candidates = append(candidates, o)
			}
		}
	}

	var first error
	for _, cand := range candidates {
		mark := len(c.diags)
		err := parseOneField(c, cand, fv, dst, path)
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
		c.rollback(mark)
	}
	return first
}

func parseOneField(c *Context, f *Field, fv cty.Value, dst any, path cty.Path) error {
	fpath := f.Path(path)
	storage, ok := f.Access(dst)
	if !ok {
		return diag.Errorf(diag.CodeInvalidType, fpath, "field %s expects record %s, got %T", f, f.owner.storage, dst)
	}
	fp, err := c.Resolve(f.Type, fpath)
	if err != nil {
		return err
	}
	prev := c.forward
	if f.Forward {
		c.forward = true
	}
	err = Parse(c, fp, fv, storage, fpath)
	c.forward = prev
	return err
}

// groupParsed reports whether another field sharing f's storage was given.
func groupParsed(m *Array, f *Field, parsed map[int]struct{}, v cty.Value) bool {
	if f.group < 0 {
		return false
	}
	if _, ok := parsed[f.group]; ok {
		return true
	}
	for _, o := range m.Fields {
		if o == f || !f.SharesStorage(o) {
			continue
		}
		if _, ok := lookupKey(v, o.Segments()); ok {
			return true
		}
	}
	return false
}

func declaredKeys(fields []*Field) map[string]bool {
	keys := make(map[string]bool)
	for _, f := range fields {
		segs := f.Segments()
		for i := 1; i < len(segs); i++ {
			prefix := strings.Join(segs[:i], KeySeparator)
			if _, ok := keys[prefix]; !ok {
				keys[prefix] = false
			}
		}
		if len(segs) > 0 {
			keys[strings.Join(segs, KeySeparator)] = true
		}
	}
	return keys
}

// lookupKey walks nested objects along segs.
func lookupKey(v cty.Value, segs []string) (cty.Value, bool) {
	if len(segs) == 0 {
		return cty.NilVal, false
	}
	cur := v
	for _, seg := range segs {
		if cur.IsNull() || !cur.IsKnown() {
			return cty.NilVal, false
		}
		ty := cur.Type()
		switch {
		case ty.IsObjectType():
			if !ty.HasAttribute(seg) {
				return cty.NilVal, false
			}
			cur = cur.GetAttr(seg)
		case ty.IsMapType():
			key := cty.StringVal(seg)
			if !cur.HasIndex(key).True() {
				return cty.NilVal, false
			}
			cur = cur.Index(key)
		default:
			return cty.NilVal, false
		}
	}
	return cur, true
}

func dumpArray(c *Context, p *Parser, m *Array, src any, path cty.Path) (cty.Value, error) {
	out := newObjectBuilder()
	emittedKeys := make(map[string]struct{})

	for _, f := range m.Fields {
		switch f.Kind {
		case FieldSkip:
			continue
		case FieldRemoved:
			if f.Advertised(c.version) {
				out.set(f.Segments(), f.Tombstone)
			}
			continue
		}
		if _, done := emittedKeys[f.Key]; done {
			continue
		}

		fpath := f.Path(path)
		storage, ok := f.Access(src)
		if !ok {
			return cty.NilVal, diag.Errorf(diag.CodeInvalidType, fpath, "field %s expects record %s, got %T", f, p.storage, src)
		}
		fp, err := c.Resolve(f.Type, fpath)
		if err != nil {
			return cty.NilVal, err
		}
		if dumpsNothing(fp) {
			c.Warn(diag.CodeDisabled, fpath, "%s is write-only and never dumped", fp.Type)
			continue
		}

		prev := c.forward
		if f.Forward {
			c.forward = true
		}
		fv, err := Dump(c, fp, storage, fpath)
		c.forward = prev
		if err != nil {
			if f.Required {
				return cty.NilVal, err
			}
			if f.Overloads > 1 && hasLaterOverload(m, f) {
				continue
			}
			c.Warn(diag.CodeDumpFailed, fpath, "field replaced by null: %s", err)
			fv = cty.NullVal(cty.DynamicPseudoType)
		}
		out.set(f.Segments(), fv)
		emittedKeys[f.Key] = struct{}{}
	}
	return out.value(), nil
}

// hasLaterOverload reports whether another overload with the same key
// follows f and can still be tried.
func hasLaterOverload(m *Array, f *Field) bool {
	seen := false
	for _, o := range m.Fields {
		if o == f {
			seen = true
			continue
		}
		if seen && o.Key == f.Key && o.Kind != FieldRemoved && o.Kind != FieldSkip {
			return true
		}
	}
	return false
}

// objectBuilder assembles nested objects from "/" separated keys.
type objectBuilder struct {
	attrs map[string]cty.Value
	kids  map[string]*objectBuilder
	order []string
}

func newObjectBuilder() *objectBuilder {
	return &objectBuilder{attrs: map[string]cty.Value{}, kids: map[string]*objectBuilder{}}
}

func (b *objectBuilder) set(segs []string, v cty.Value) {
	if len(segs) == 0 {
		return
	}
	head := segs[0]
	if len(segs) == 1 {
		if _, ok := b.kids[head]; ok {
			return
		}
		b.attrs[head] = v
		return
	}
	kid, ok := b.kids[head]
	if !ok {
		kid = newObjectBuilder()
		b.kids[head] = kid
		b.order = append(b.order, head)
	}
	kid.set(segs[1:], v)
}

func (b *objectBuilder) value() cty.Value {
	if len(b.attrs) == 0 && len(b.kids) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(b.attrs)+len(b.kids))
	for k, v := range b.attrs {
		vals[k] = v
	}
	for _, k := range b.order {
		if _, clash := vals[k]; clash {
			continue
		}
		vals[k] = b.kids[k].value()
	}
	return cty.ObjectVal(vals)
}
