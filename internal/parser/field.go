package parser

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/zclconf/go-cty/cty"
)

// FieldKind is the field-level model of an Array entry.
type FieldKind int

const (
	// FieldLinked converts one member of the record with another descriptor.
	FieldLinked FieldKind = iota
	// FieldWhole hands the whole record to a Complex descriptor.
	FieldWhole
	// FieldSkip has storage but no external representation.
	FieldSkip
	// FieldRemoved has an external key but no storage any more.
	FieldRemoved
)

// String returns the field model name.
func (k FieldKind) String() string {
	switch k {
	case FieldLinked:
		return "ARRAY_LINKED_FIELD"
	case FieldWhole:
		return "ARRAY_COMPLEX_FIELD"
	case FieldSkip:
		return "ARRAY_SKIP_FIELD"
	case FieldRemoved:
		return "ARRAY_REMOVED_FIELD"
	default:
		return "UNKNOWN"
	}
}

// KeySeparator splits a field key into nested object keys.
const KeySeparator = "/"

// Field is one entry of an Array descriptor.
type Field struct {
	Kind FieldKind
	// Key is the external path of the field, e.g. "time/limit".
	Key  string
	Type TypeID
	// Size is the width of the member the accessor points at.
	Size        uintptr
	Required    bool
	Deprecated  Version
	Overloads   int
	Forward     bool
	Description string
	// Tombstone is what a removed field dumps.
	Tombstone cty.Value

	storage string
	access  func(rec any) (any, bool)
	owner   *Parser
	group   int
}

// Owner returns the Array descriptor the field belongs to.
func (f *Field) Owner() *Parser { return f.owner }

// Storage names the Go type of the member the field points at.
func (f *Field) Storage() string { return f.storage }

// Access returns a pointer to the field's member of rec.
func (f *Field) Access(rec any) (any, bool) {
	if f.access == nil {
		return nil, false
	}
	return f.access(rec)
}

// SharesStorage reports whether f and o point at the same member.
func (f *Field) SharesStorage(o *Field) bool {
	return f.group >= 0 && f.group == o.group
}

// Segments splits the key on KeySeparator.
func (f *Field) Segments() []string {
	if f.Key == "" {
		return nil
	}
	return strings.Split(f.Key, KeySeparator)
}

// Advertised reports whether f is still part of the schema at version v. The
// zero version advertises every field.
func (f *Field) Advertised(v Version) bool {
	return f.Deprecated == 0 || v == 0 || v < f.Deprecated
}

// Path appends the key segments to path.
func (f *Field) Path(path cty.Path) cty.Path {
	for _, seg := range f.Segments() {
		path = path.GetAttr(seg)
	}
	return path
}

// String describes the field for error messages.
func (f *Field) String() string {
	owner := "?"
	if f.owner != nil {
		owner = string(f.owner.Type)
	}
	if f.Key == "" {
		return fmt.Sprintf("%s.<%s %s>", owner, f.Kind, f.storage)
	}
	return fmt.Sprintf("%s.%s", owner, f.Key)
}

// FieldOption customizes a field.
type FieldOption func(*Field)

// Required makes a missing key a parse error.
func Required() FieldOption {
	return func(f *Field) { f.Required = true }
}

// Deprecated hides the field from generated schemas from version v on and
// warns when a client still sends it.
func Deprecated(v Version) FieldOption {
	return func(f *Field) { f.Deprecated = v }
}

// Overloads declares that n fields of the record share this field's storage.
func Overloads(n int) FieldOption {
	return func(f *Field) { f.Overloads = n }
}

// Forward lets references below the field name catalog entries that do not
// exist yet. Unresolved names pass through unchanged.
func Forward() FieldOption {
	return func(f *Field) { f.Forward = true }
}

// Doc sets the field description.
func Doc(desc string) FieldOption {
	return func(f *Field) { f.Description = desc }
}

func newField(kind FieldKind, key string, typ TypeID, opts []FieldOption) *Field {
	f := &Field{Kind: kind, Key: key, Type: typ, group: -1}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Linked declares a field converting the member get returns with typ.
func Linked[R, F any](key string, typ TypeID, get func(*R) *F, opts ...FieldOption) *Field {
	f := newField(FieldLinked, key, typ, opts)
	var zero F
	f.Size = unsafe.Sizeof(zero)
	f.storage = fmt.Sprintf("%T", &zero)
	f.access = func(rec any) (any, bool) {
		r, ok := rec.(*R)
		if !ok || r == nil {
			return nil, false
		}
		return get(r), true
	}
	return f
}

// Whole declares a field converted by the Complex descriptor typ, which
// receives the whole record.
func Whole[R any](key string, typ TypeID, opts ...FieldOption) *Field {
	f := newField(FieldWhole, key, typ, opts)
	var zero R
	f.Size = unsafe.Sizeof(zero)
	f.storage = fmt.Sprintf("%T", &zero)
	f.access = func(rec any) (any, bool) {
		r, ok := rec.(*R)
		if !ok || r == nil {
			return nil, false
		}
		return r, true
	}
	return f
}

// Skip declares a member that is never converted.
func Skip[R, F any](get func(*R) *F) *Field {
	f := newField(FieldSkip, "", "", nil)
	var zero F
	f.Size = unsafe.Sizeof(zero)
	f.storage = fmt.Sprintf("%T", &zero)
	f.access = func(rec any) (any, bool) {
		r, ok := rec.(*R)
		if !ok || r == nil {
			return nil, false
		}
		return get(r), true
	}
	return f
}

// Removed declares a key whose storage is gone. It rejects every attempt to
// set it and dumps tombstone while the field is advertised; pass Deprecated
// to stop reporting it from a version on.
func Removed(key string, tombstone cty.Value, opts ...FieldOption) *Field {
	return newField(FieldRemoved, key, "", append([]FieldOption{func(f *Field) { f.Tombstone = tombstone }}, opts...))
}
