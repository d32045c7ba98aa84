package parser

import (
	"errors"

	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/flagbit"
	"github.com/zclconf/go-cty/cty"
)

const (
	opParse = "parse"
	opDump  = "dump"
)

// Parse converts v into the storage dst points at, as described by p. On
// failure dst may be partially written and must be discarded.
func Parse(c *Context, p *Parser, v cty.Value, dst any, path cty.Path) error {
	mark, top := len(c.diags), c.enter()
	err := parse(c, p, v, dst, path)
	c.depth--
	err = c.annotate(opParse, p, path, err, top)
	if top {
		c.observe(opParse, p, mark, err)
	}
	return err
}

// Dump converts the storage src points at into a value, as described by p.
func Dump(c *Context, p *Parser, src any, path cty.Path) (cty.Value, error) {
	mark, top := len(c.diags), c.enter()
	v, err := dump(c, p, src, path)
	c.depth--
	err = c.annotate(opDump, p, path, err, top)
	if top {
		c.observe(opDump, p, mark, err)
	}
	if err != nil {
		return cty.NilVal, err
	}
	return v, nil
}

// ParseAs is Parse with the descriptor looked up by id.
func ParseAs(c *Context, id TypeID, v cty.Value, dst any, path cty.Path) error {
	p, err := c.Resolve(id, path)
	if err != nil {
		return err
	}
	return Parse(c, p, v, dst, path)
}

// DumpAs is Dump with the descriptor looked up by id.
func DumpAs(c *Context, id TypeID, src any, path cty.Path) (cty.Value, error) {
	p, err := c.Resolve(id, path)
	if err != nil {
		return cty.NilVal, err
	}
	return Dump(c, p, src, path)
}

func (c *Context) enter() bool {
	top := c.depth == 0
	if top {
		c.Logger().Debug("Codec call started.")
	}
	c.depth++
	return top
}

// annotate stamps the innermost call site onto err and, for the outermost
// frame, records it in the diagnostics.
func (c *Context) annotate(op string, p *Parser, path cty.Path, err error, top bool) error {
	if err == nil {
		return nil
	}
	var de *diag.Error
	if !errors.As(err, &de) {
		de = diag.Wrap(diag.CodeInvalidType, path, err)
		err = de
	}
	if de.Op == "" {
		de.Op = op
		de.Type = string(p.Type)
	}
	if top {
		de.Path = c.Path(de.Path)
		c.diags = append(c.diags, de.Diagnostic())
		c.Logger().Debug("Codec call failed.", "op", op, "type", p.Type, "error", err)
	}
	return err
}

// observe reports a finished top-level call and the diagnostics it added.
func (c *Context) observe(op string, p *Parser, mark int, err error) {
	if c.observer == nil {
		return
	}
	for _, d := range c.diags[mark:] {
		c.observer.ObserveDiagnostic(op, d)
	}
	c.observer.ObserveCall(op, p.Type, err)
}

func parse(c *Context, p *Parser, v cty.Value, dst any, path cty.Path) error {
	if !v.IsKnown() {
		return diag.Errorf(diag.CodeInvalidType, path, "value must be known")
	}
	switch m := p.Model.(type) {
	case *Simple:
		return parseLeaf(c, p, m.Parse, m.Direction, v, dst, path)
	case *Complex:
		return parseLeaf(c, p, m.Parse, m.Direction, v, dst, path)
	case *Array:
		return parseArray(c, p, m, v, dst, path)
	case *List:
		return parseSequence(c, p, m.Elem, m.reset, m.appendNew, v, dst, path)
	case *NTArray:
		return parseSequence(c, p, m.Elem, m.reset, m.appendNew, v, dst, path)
	case *NTPtrArray:
		return parseSequence(c, p, m.Elem, m.reset, m.appendNew, v, dst, path)
	case *Pointer:
		return parsePointer(c, p, m, v, dst, path)
	case *FlagArray:
		return parseFlags(p, m, v, dst, path)
	default:
		return diag.Errorf(diag.CodeInvalidType, path, "%s has unsupported model %T", p.Type, p.Model)
	}
}

func dump(c *Context, p *Parser, src any, path cty.Path) (cty.Value, error) {
	switch m := p.Model.(type) {
	case *Simple:
		return dumpLeaf(c, p, m.Dump, m.Direction, src, path)
	case *Complex:
		return dumpLeaf(c, p, m.Dump, m.Direction, src, path)
	case *Array:
		return dumpArray(c, p, m, src, path)
	case *List:
		return dumpList(c, p, m, src, path)
	case *NTArray:
		return dumpNTArray(c, p, m, src, path)
	case *NTPtrArray:
		return dumpNTPtrArray(c, p, m, src, path)
	case *Pointer:
		return dumpPointer(c, p, m, src, path)
	case *FlagArray:
		return dumpFlags(p, m, src, path)
	default:
		return cty.NilVal, diag.Errorf(diag.CodeInvalidType, path, "%s has unsupported model %T", p.Type, p.Model)
	}
}

func parseLeaf(c *Context, p *Parser, fn ParseFunc, dir Direction, v cty.Value, dst any, path cty.Path) error {
	if fn == nil {
		if dir == DumpOnly {
			c.Warn(diag.CodeDisabled, path, "%s is read-only, value ignored", p.Type)
			return nil
		}
		return diag.Errorf(diag.CodeInvalidType, path, "%s has no parser", p.Type)
	}
	return fn(c, v, dst, path)
}

func dumpLeaf(c *Context, p *Parser, fn DumpFunc, dir Direction, src any, path cty.Path) (cty.Value, error) {
	if fn == nil {
		if dir == ParseOnly {
			c.Warn(diag.CodeDisabled, path, "%s is write-only and never dumped", p.Type)
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return cty.NilVal, diag.Errorf(diag.CodeInvalidType, path, "%s has no dumper", p.Type)
	}
	v, err := fn(c, src, path)
	if err != nil {
		return cty.NilVal, err
	}
	if v.Type() == cty.NilType {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	return v, nil
}

// dumpsNothing reports whether p is a write-only leaf whose key should be
// left out of an enclosing record.
func dumpsNothing(p *Parser) bool {
	switch m := p.Model.(type) {
	case *Simple:
		return m.Dump == nil && m.Direction == ParseOnly
	case *Complex:
		return m.Dump == nil && m.Direction == ParseOnly
	}
	return false
}

func parseSequence(
	c *Context,
	p *Parser,
	elem TypeID,
	reset func(any) bool,
	appendNew func(dst, seed any) (any, bool),
	v cty.Value,
	dst any,
	path cty.Path,
) error {
	if !reset(dst) {
		return diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %s, got %T", p.Type, p.storage, dst)
	}
	if v.IsNull() {
		return nil
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return diag.Errorf(diag.CodeInvalidType, path, "expected a list, got %s", ty.FriendlyName())
	}
	ep, err := c.Resolve(elem, path)
	if err != nil {
		return err
	}
	i := 0
	for it := v.ElementIterator(); it.Next(); i++ {
		_, ev := it.Element()
		slot, _ := appendNew(dst, ep.New())
		if err := Parse(c, ep, ev, slot, diag.Index(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func parsePointer(c *Context, p *Parser, m *Pointer, v cty.Value, dst any, path cty.Path) error {
	if v.IsNull() {
		if !m.clear(dst) {
			return diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %s, got %T", p.Type, p.storage, dst)
		}
		return nil
	}
	tp, err := c.Resolve(m.Target, path)
	if err != nil {
		return err
	}
	target, ok := m.alloc(dst, tp.New())
	if !ok {
		return diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %s, got %T", p.Type, p.storage, dst)
	}
	return Parse(c, tp, v, target, path)
}

func dumpPointer(c *Context, p *Parser, m *Pointer, src any, path cty.Path) (cty.Value, error) {
	target, isNil, ok := m.deref(src)
	if !ok {
		return cty.NilVal, diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %s, got %T", p.Type, p.storage, src)
	}
	if isNil {
		if m.AllowNull {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		target = m.zero()
	}
	tp, err := c.Resolve(m.Target, path)
	if err != nil {
		return cty.NilVal, err
	}
	return Dump(c, tp, target, path)
}

// dumpElements converts n elements. An element that fails becomes a null
// placeholder and a warning so one bad record never hides the rest.
func dumpElements(c *Context, ep *Parser, n int, at func(int) any, path cty.Path) cty.Value {
	if n == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, 0, n)
	for i := 0; i < n; i++ {
		ipath := diag.Index(path, i)
		ev, err := Dump(c, ep, at(i), ipath)
		if err != nil {
			c.Warn(diag.CodeDumpFailed, ipath, "element skipped: %s", err)
			ev = cty.NullVal(cty.DynamicPseudoType)
		}
		vals = append(vals, ev)
	}
	return cty.TupleVal(vals)
}

func dumpList(c *Context, p *Parser, m *List, src any, path cty.Path) (cty.Value, error) {
	n, ok := m.length(src)
	if !ok {
		return cty.NilVal, diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %s, got %T", p.Type, p.storage, src)
	}
	ep, err := c.Resolve(m.Elem, path)
	if err != nil {
		return cty.NilVal, err
	}
	return dumpElements(c, ep, n, func(i int) any { return m.at(src, i) }, path), nil
}

func dumpNTArray(c *Context, p *Parser, m *NTArray, src any, path cty.Path) (cty.Value, error) {
	n, ok := m.length(src)
	if !ok {
		return cty.NilVal, diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %s, got %T", p.Type, p.storage, src)
	}
	if m.terminator != nil {
		for i := 0; i < n; i++ {
			if m.terminator(m.at(src, i)) {
				n = i
				break
			}
		}
	}
	ep, err := c.Resolve(m.Elem, path)
	if err != nil {
		return cty.NilVal, err
	}
	return dumpElements(c, ep, n, func(i int) any { return m.at(src, i) }, path), nil
}

func dumpNTPtrArray(c *Context, p *Parser, m *NTPtrArray, src any, path cty.Path) (cty.Value, error) {
	n, ok := m.length(src)
	if !ok {
		return cty.NilVal, diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %s, got %T", p.Type, p.storage, src)
	}
	for i := 0; i < n; i++ {
		if _, live := m.at(src, i); !live {
			n = i
			break
		}
	}
	ep, err := c.Resolve(m.Elem, path)
	if err != nil {
		return cty.NilVal, err
	}
	return dumpElements(c, ep, n, func(i int) any {
		e, _ := m.at(src, i)
		return e
	}, path), nil
}

func parseFlags(p *Parser, m *FlagArray, v cty.Value, dst any, path cty.Path) error {
	packed, err := m.Flags.Parse(v)
	switch {
	case errors.Is(err, flagbit.ErrUnknownFlag):
		return diag.Wrap(diag.CodeUnknownFlag, path, err)
	case errors.Is(err, flagbit.ErrConflictingFlags):
		return diag.Wrap(diag.CodeConflictingFlags, path, err)
	case err != nil:
		return diag.Wrap(diag.CodeInvalidType, path, err)
	}
	if m.Bits < 64 && packed>>uint(m.Bits) != 0 {
		return diag.Errorf(diag.CodeOutOfRange, path, "flags of %s do not fit in %d bits", p.Type, m.Bits)
	}
	if !m.set(dst, packed) {
		return diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %s, got %T", p.Type, p.storage, dst)
	}
	return nil
}

func dumpFlags(p *Parser, m *FlagArray, src any, path cty.Path) (cty.Value, error) {
	v, ok := m.get(src)
	if !ok {
		return cty.NilVal, diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %s, got %T", p.Type, p.storage, src)
	}
	return m.Flags.Dump(v), nil
}
