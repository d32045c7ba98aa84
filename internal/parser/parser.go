package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"github.com/vk/slurmcodec/internal/flagbit"
	"github.com/zclconf/go-cty/cty"
)

// TypeID names a descriptor in a registry, e.g. "QOS_ID" or "JOB_DESC".
type TypeID string

// Version is a data_parser API version number. Version 42 renders as v0.0.42.
// The zero Version means "none".
type Version uint16

// String renders the version in its external form.
func (v Version) String() string {
	if v == 0 {
		return "none"
	}
	return fmt.Sprintf("v0.0.%d", uint16(v))
}

// ParseVersion accepts "v0.0.42", "0.0.42" or "42".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	s = strings.TrimPrefix(s, "0.0.")
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q", s)
	}
	return Version(n), nil
}

// SchemaType names the shape a leaf takes in the value tree.
type SchemaType string

// Schema types of leaves.
const (
	SchemaString  SchemaType = "string"
	SchemaInteger SchemaType = "integer"
	SchemaNumber  SchemaType = "number"
	SchemaBoolean SchemaType = "boolean"
	SchemaObject  SchemaType = "object"
	// SchemaStringArray and SchemaObjectArray are lists of one shape.
	SchemaStringArray SchemaType = "string_array"
	SchemaObjectArray SchemaType = "object_array"
	// SchemaNoValInteger and SchemaNoValNumber may also be unset or unbounded.
	SchemaNoValInteger SchemaType = "no_val_integer"
	SchemaNoValNumber  SchemaType = "no_val_number"
)

// Lookup resolves type ids to descriptors. Registries implement it.
type Lookup interface {
	Lookup(id TypeID) (*Parser, bool)
}

// Parser describes how one Go type maps to and from the value tree.
type Parser struct {
	Type        TypeID
	Model       Model
	Description string
	// Size is the width in bytes of the storage the descriptor converts.
	Size uintptr
	// Deprecated hides the type from generated schemas from this version on.
	Deprecated Version
	// SchemaType is what a leaf renders as in generated schemas. Empty means
	// any value.
	SchemaType SchemaType

	storage string
	newFn   func() any
}

// Storage names the Go type the descriptor expects behind its pointer.
func (p *Parser) Storage() string { return p.storage }

// New allocates storage for the descriptor and returns a pointer to it. The
// storage is zeroed unless the descriptor was built with Initial.
func (p *Parser) New() any { return p.newFn() }

// String returns the type id.
func (p *Parser) String() string { return string(p.Type) }

// Option customizes a descriptor at construction.
type Option func(*Parser)

// Describe sets the human readable description.
func Describe(desc string) Option {
	return func(p *Parser) { p.Description = desc }
}

// DeprecatedIn marks the type as deprecated from version v on.
func DeprecatedIn(v Version) Option {
	return func(p *Parser) { p.Deprecated = v }
}

// Renders sets the schema type of a leaf.
func Renders(t SchemaType) Option {
	return func(p *Parser) { p.SchemaType = t }
}

// Initial makes New start from fn's result instead of the zero value, e.g. a
// record whose limits are unset. T must be the descriptor's storage type.
func Initial[T any](fn func() T) Option {
	return func(p *Parser) {
		p.newFn = func() any {
			v := fn()
			return &v
		}
	}
}

// ReadOnly restricts a Simple or Complex descriptor to dumping.
func ReadOnly() Option {
	return func(p *Parser) { setDirection(p, DumpOnly) }
}

// WriteOnly restricts a Simple or Complex descriptor to parsing.
func WriteOnly() Option {
	return func(p *Parser) { setDirection(p, ParseOnly) }
}

// Nullable lets a Pointer dump null for a nil target.
func Nullable() Option {
	return func(p *Parser) {
		if m, ok := p.Model.(*Pointer); ok {
			m.AllowNull = true
		}
	}
}

func setDirection(p *Parser, d Direction) {
	switch m := p.Model.(type) {
	case *Simple:
		m.Direction = d
	case *Complex:
		m.Direction = d
	}
}

func newParser[T any](id TypeID, m Model, opts []Option) *Parser {
	var zero T
	p := &Parser{
		Type:    id,
		Model:   m,
		Size:    unsafe.Sizeof(zero),
		storage: fmt.Sprintf("%T", &zero),
		newFn:   func() any { return new(T) },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewSimple builds a leaf descriptor over *T. Either function may be nil as
// long as the descriptor is marked ReadOnly or WriteOnly.
func NewSimple[T any](
	id TypeID,
	parse func(c *Context, v cty.Value, dst *T, path cty.Path) error,
	dump func(c *Context, src *T, path cty.Path) (cty.Value, error),
	opts ...Option,
) *Parser {
	m := &Simple{}
	if parse != nil {
		m.Parse = func(c *Context, v cty.Value, dst any, path cty.Path) error {
			t, err := storageOf[T](id, dst, path)
			if err != nil {
				return err
			}
			return parse(c, v, t, path)
		}
	}
	if dump != nil {
		m.Dump = func(c *Context, src any, path cty.Path) (cty.Value, error) {
			t, err := storageOf[T](id, src, path)
			if err != nil {
				return cty.NilVal, err
			}
			return dump(c, t, path)
		}
	}
	return newParser[T](id, m, opts)
}

// NewComplex builds a leaf descriptor whose storage is the enclosing record
// *R. It must be referenced from an Array through a Whole field.
func NewComplex[R any](
	id TypeID,
	parse func(c *Context, v cty.Value, rec *R, path cty.Path) error,
	dump func(c *Context, rec *R, path cty.Path) (cty.Value, error),
	opts ...Option,
) *Parser {
	m := &Complex{}
	if parse != nil {
		m.Parse = func(c *Context, v cty.Value, dst any, path cty.Path) error {
			r, err := storageOf[R](id, dst, path)
			if err != nil {
				return err
			}
			return parse(c, v, r, path)
		}
	}
	if dump != nil {
		m.Dump = func(c *Context, src any, path cty.Path) (cty.Value, error) {
			r, err := storageOf[R](id, src, path)
			if err != nil {
				return cty.NilVal, err
			}
			return dump(c, r, path)
		}
	}
	return newParser[R](id, m, opts)
}

// NewArray builds a record descriptor over *R from its fields. Fields are
// owned by the returned descriptor and must not be shared with another one.
func NewArray[R any](id TypeID, fields []*Field, opts ...Option) *Parser {
	m := &Array{Fields: fields, declared: declaredKeys(fields)}
	p := newParser[R](id, m, opts)

	// Fields that resolve to the same address in a scratch record share storage.
	scratch := new(R)
	type slot struct {
		addr  any
		group int
	}
	var slots []slot
	for i, f := range fields {
		f.owner = p
		f.group = -1
		if f.access == nil || f.Kind == FieldWhole {
			continue
		}
		addr, ok := f.access(scratch)
		if !ok {
			continue
		}
		f.group = i
		for _, s := range slots {
			if s.addr == addr {
				f.group = s.group
				break
			}
		}
		if f.group == i {
			slots = append(slots, slot{addr: addr, group: i})
		}
	}
	return p
}

// NewList builds a descriptor over *[]T whose elements use elem.
func NewList[T any](id TypeID, elem TypeID, opts ...Option) *Parser {
	m := &List{
		Elem:        elem,
		elemStorage: fmt.Sprintf("%T", new(T)),
		length: func(src any) (int, bool) {
			s, ok := src.(*[]T)
			if !ok {
				return 0, false
			}
			return len(*s), true
		},
		at: func(src any, i int) any {
			return &(*src.(*[]T))[i]
		},
		appendNew: func(dst, seed any) (any, bool) {
			s, ok := dst.(*[]T)
			if !ok {
				return nil, false
			}
			*s = append(*s, initialOf[T](seed))
			return &(*s)[len(*s)-1], true
		},
		reset: func(dst any) bool {
			s, ok := dst.(*[]T)
			if ok {
				*s = (*s)[:0]
			}
			return ok
		},
	}
	return newParser[[]T](id, m, opts)
}

// initialOf copies the fresh value an element descriptor's New returned, so
// sentinel fields start unset. Any other seed yields the zero T.
func initialOf[T any](seed any) T {
	if v, ok := seed.(*T); ok && v != nil {
		return *v
	}
	var zero T
	return zero
}

// NewPointer builds a descriptor over **T that converts the pointee with target.
func NewPointer[T any](id TypeID, target TypeID, opts ...Option) *Parser {
	m := &Pointer{
		Target:        target,
		targetStorage: fmt.Sprintf("%T", new(T)),
		deref: func(src any) (any, bool, bool) {
			pp, ok := src.(**T)
			if !ok {
				return nil, false, false
			}
			if *pp == nil {
				return nil, true, true
			}
			return *pp, false, true
		},
		alloc: func(dst, seed any) (any, bool) {
			pp, ok := dst.(**T)
			if !ok {
				return nil, false
			}
			if *pp == nil {
				*pp = new(T)
				**pp = initialOf[T](seed)
			}
			return *pp, true
		},
		clear: func(dst any) bool {
			pp, ok := dst.(**T)
			if ok {
				*pp = nil
			}
			return ok
		},
		zero: func() any { return new(T) },
	}
	return newParser[*T](id, m, opts)
}

// NewNTArray builds a descriptor over *[]T. Dumping stops at the first element
// for which terminator returns true; a nil terminator walks the whole slice.
func NewNTArray[T any](id TypeID, elem TypeID, terminator func(*T) bool, opts ...Option) *Parser {
	m := &NTArray{
		Elem:        elem,
		elemStorage: fmt.Sprintf("%T", new(T)),
		length: func(src any) (int, bool) {
			s, ok := src.(*[]T)
			if !ok {
				return 0, false
			}
			return len(*s), true
		},
		at: func(src any, i int) any {
			return &(*src.(*[]T))[i]
		},
		appendNew: func(dst, seed any) (any, bool) {
			s, ok := dst.(*[]T)
			if !ok {
				return nil, false
			}
			*s = append(*s, initialOf[T](seed))
			return &(*s)[len(*s)-1], true
		},
		reset: func(dst any) bool {
			s, ok := dst.(*[]T)
			if ok {
				*s = (*s)[:0]
			}
			return ok
		},
	}
	if terminator != nil {
		m.terminator = func(elem any) bool { return terminator(elem.(*T)) }
	}
	return newParser[[]T](id, m, opts)
}

// NewNTPtrArray builds a descriptor over *[]*T. Dumping stops at the first
// nil pointer.
func NewNTPtrArray[T any](id TypeID, elem TypeID, opts ...Option) *Parser {
	m := &NTPtrArray{
		Elem:        elem,
		elemStorage: fmt.Sprintf("%T", new(T)),
		length: func(src any) (int, bool) {
			s, ok := src.(*[]*T)
			if !ok {
				return 0, false
			}
			return len(*s), true
		},
		at: func(src any, i int) (any, bool) {
			e := (*src.(*[]*T))[i]
			return e, e != nil
		},
		appendNew: func(dst, seed any) (any, bool) {
			s, ok := dst.(*[]*T)
			if !ok {
				return nil, false
			}
			e := new(T)
			*e = initialOf[T](seed)
			*s = append(*s, e)
			return e, true
		},
		reset: func(dst any) bool {
			s, ok := dst.(*[]*T)
			if ok {
				*s = (*s)[:0]
			}
			return ok
		},
	}
	return newParser[[]*T](id, m, opts)
}

// Unsigned is the set of storages a flag array may pack into.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// NewFlagArray builds a descriptor over *T packed with the given flags.
func NewFlagArray[T Unsigned](id TypeID, flags []flagbit.Entry, opts ...Option) *Parser {
	var zero T
	m := &FlagArray{
		Flags: flagbit.Set(flags),
		Bits:  int(unsafe.Sizeof(zero)) * 8,
		get: func(src any) (uint64, bool) {
			t, ok := src.(*T)
			if !ok {
				return 0, false
			}
			return uint64(*t), true
		},
		set: func(dst any, v uint64) bool {
			t, ok := dst.(*T)
			if ok {
				*t = T(v)
			}
			return ok
		},
	}
	return newParser[T](id, m, opts)
}
