package parser

import (
	"github.com/vk/slurmcodec/internal/flagbit"
	"github.com/zclconf/go-cty/cty"
)

// Kind is the structural category of a descriptor.
type Kind int

const (
	KindSimple Kind = iota
	KindComplex
	KindArray
	KindList
	KindPointer
	KindNTArray
	KindNTPtrArray
	KindFlagArray
)

// String returns the upper-case model name used in logs and schema dumps.
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "SIMPLE"
	case KindComplex:
		return "COMPLEX"
	case KindArray:
		return "ARRAY"
	case KindList:
		return "LIST"
	case KindPointer:
		return "PTR"
	case KindNTArray:
		return "NT_ARRAY"
	case KindNTPtrArray:
		return "NT_PTR_ARRAY"
	case KindFlagArray:
		return "FLAG_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// Model is the closed set of descriptor variants. Only the types in this
// file implement it.
type Model interface {
	Kind() Kind
	isModel()
}

// Direction restricts a leaf descriptor to one conversion direction.
type Direction int

const (
	// Both is the default: the leaf parses and dumps.
	Both Direction = iota
	// DumpOnly leaves are derived values. Parsing them records a warning.
	DumpOnly
	// ParseOnly leaves are write-only values. Dumping them records a warning.
	ParseOnly
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DumpOnly:
		return "dump-only"
	case ParseOnly:
		return "parse-only"
	default:
		return "both"
	}
}

// ParseFunc converts v into the storage behind dst.
type ParseFunc func(c *Context, v cty.Value, dst any, path cty.Path) error

// DumpFunc converts the storage behind src into a value.
type DumpFunc func(c *Context, src any, path cty.Path) (cty.Value, error)

// Simple is a leaf converted by its own functions.
type Simple struct {
	Parse     ParseFunc
	Dump      DumpFunc
	Direction Direction
}

func (*Simple) Kind() Kind { return KindSimple }
func (*Simple) isModel()   {}

// Complex is a leaf whose functions receive the whole enclosing record, so
// they can read or set sibling fields.
type Complex struct {
	Parse     ParseFunc
	Dump      DumpFunc
	Direction Direction
}

func (*Complex) Kind() Kind { return KindComplex }
func (*Complex) isModel()   {}

// Array is a record with an ordered field list.
type Array struct {
	Fields []*Field

	// declared holds every field key and every "/" prefix of one. It maps
	// complete keys to true.
	declared map[string]bool
}

func (*Array) Kind() Kind { return KindArray }
func (*Array) isModel()   {}

// List is a homogeneous slice of Elem.
type List struct {
	Elem TypeID

	elemStorage string
	length      func(src any) (int, bool)
	at          func(src any, i int) any
	appendNew   func(dst, seed any) (any, bool)
	reset       func(dst any) bool
}

func (*List) Kind() Kind { return KindList }
func (*List) isModel()   {}

// ElemStorage names the Go type each element descriptor must convert.
func (m *List) ElemStorage() string { return m.elemStorage }

// Pointer is an optional indirection to Target.
type Pointer struct {
	Target    TypeID
	AllowNull bool

	targetStorage string
	deref         func(src any) (any, bool, bool)
	alloc         func(dst, seed any) (any, bool)
	clear         func(dst any) bool
	zero          func() any
}

func (*Pointer) Kind() Kind { return KindPointer }
func (*Pointer) isModel()   {}

// TargetStorage names the Go type the target descriptor must convert.
func (m *Pointer) TargetStorage() string { return m.targetStorage }

// NTArray is a sequence of Elem values that ends at its length or at the
// first element the terminator reports.
type NTArray struct {
	Elem TypeID

	elemStorage string
	length      func(src any) (int, bool)
	at          func(src any, i int) any
	terminator  func(elem any) bool
	appendNew   func(dst, seed any) (any, bool)
	reset       func(dst any) bool
}

func (*NTArray) Kind() Kind { return KindNTArray }
func (*NTArray) isModel()   {}

// ElemStorage names the Go type each element descriptor must convert.
func (m *NTArray) ElemStorage() string { return m.elemStorage }

// NTPtrArray is a sequence of pointers to Elem that ends at its length or at
// the first nil pointer.
type NTPtrArray struct {
	Elem TypeID

	elemStorage string
	length      func(src any) (int, bool)
	at          func(src any, i int) (any, bool)
	appendNew   func(dst, seed any) (any, bool)
	reset       func(dst any) bool
}

func (*NTPtrArray) Kind() Kind { return KindNTPtrArray }
func (*NTPtrArray) isModel()   {}

// ElemStorage names the Go type each element descriptor must convert.
func (m *NTPtrArray) ElemStorage() string { return m.elemStorage }

// FlagArray is an unsigned integer packed with named flags.
type FlagArray struct {
	Flags flagbit.Set
	// Bits is the width of the storage.
	Bits int

	get func(src any) (uint64, bool)
	set func(dst any, v uint64) bool
}

func (*FlagArray) Kind() Kind { return KindFlagArray }
func (*FlagArray) isModel()   {}
