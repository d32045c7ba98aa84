// Package flagbit maps a packed integer field to and from a list of flag
// names.
//
// A flag array is an ordered list of entries. Bit entries name one or more
// bits that may be set independently. Equal entries name one exclusive state
// of a masked sub-field, so only the first matching Equal entry of each mask
// is reported.
package flagbit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Kind is the matching rule of an entry.
type Kind int

const (
	// Bit entries match when all of their bits are set.
	Bit Kind = iota
	// Equal entries match when the masked sub-field equals their value.
	Equal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Bit:
		return "bit"
	case Equal:
		return "equal"
	default:
		return "unknown"
	}
}

// Entry is one named flag of a packed field.
type Entry struct {
	Kind        Kind
	Value       uint64
	Mask        uint64
	Name        string
	Description string
	// Hidden entries are accepted on parse but never dumped.
	Hidden bool
}

// BitFlag declares a Bit entry whose mask is its own value.
func BitFlag(name string, value uint64) Entry {
	return Entry{Kind: Bit, Value: value, Mask: value, Name: name}
}

// EqualFlag declares an Equal entry over mask.
func EqualFlag(name string, value, mask uint64) Entry {
	return Entry{Kind: Equal, Value: value, Mask: mask, Name: name}
}

// Hide returns a copy of e that is never dumped.
func (e Entry) Hide() Entry {
	e.Hidden = true
	return e
}

// Describe returns a copy of e with a description.
func (e Entry) Describe(desc string) Entry {
	e.Description = desc
	return e
}

// Matches reports whether the entry is set in v.
func (e Entry) Matches(v uint64) bool {
	if e.Kind == Equal {
		return v&e.Mask == e.Value
	}
	return v&e.Mask&e.Value == e.Value
}

// Errors returned by Parse.
var (
	ErrUnknownFlag      = errors.New("unknown flag")
	ErrConflictingFlags = errors.New("conflicting flags")
)

// Set is an ordered flag array.
type Set []Entry

// Names reports the flags set in v: Equal entries first, in declared order,
// at most one per distinct mask, then every matching Bit entry.
func (s Set) Names(v uint64) []string {
	var out []string
	seen := make(map[uint64]struct{})
	for _, e := range s {
		if e.Kind != Equal {
			continue
		}
		if _, done := seen[e.Mask]; done {
			continue
		}
		if e.Matches(v) {
			seen[e.Mask] = struct{}{}
			if !e.Hidden {
				out = append(out, e.Name)
			}
		}
	}
	for _, e := range s {
		if e.Kind == Bit && !e.Hidden && e.Matches(v) {
			out = append(out, e.Name)
		}
	}
	return out
}

// Lookup finds an entry by case-insensitive name.
func (s Set) Lookup(name string) (Entry, bool) {
	for _, e := range s {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Value folds a list of names into a packed value starting from zero. Equal
// entries are applied before Bit entries so the result does not depend on the
// order of names.
func (s Set) Value(names []string) (uint64, error) {
	used := make(map[string]struct{}, len(names))
	var equals, bits []Entry

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		e, ok := s.Lookup(name)
		if !ok {
			return 0, fmt.Errorf("%w %q", ErrUnknownFlag, name)
		}
		key := strings.ToLower(e.Name)
		if _, dup := used[key]; dup {
			return 0, fmt.Errorf("%w: %q given more than once", ErrConflictingFlags, name)
		}
		used[key] = struct{}{}

		if e.Kind != Equal {
			bits = append(bits, e)
			continue
		}
		for _, prev := range equals {
			if prev.Mask&e.Mask != 0 {
				return 0, fmt.Errorf("%w: %q and %q select the same field", ErrConflictingFlags, prev.Name, e.Name)
			}
		}
		equals = append(equals, e)
	}

	var v uint64
	for _, e := range equals {
		v = v&^e.Mask | e.Value
	}
	for _, e := range bits {
		v |= e.Value
	}
	return v, nil
}

// Dump renders v as a tuple of flag names.
func (s Set) Dump(v uint64) cty.Value {
	names := s.Names(v)
	if len(names) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, len(names))
	for i, n := range names {
		vals[i] = cty.StringVal(n)
	}
	return cty.TupleVal(vals)
}

// Parse folds a list, set or tuple of strings, or a single comma separated
// string, into a packed value. Null parses as zero.
func (s Set) Parse(val cty.Value) (uint64, error) {
	names, err := Strings(val)
	if err != nil {
		return 0, err
	}
	return s.Value(names)
}

// Strings flattens a cty list, set, tuple or comma separated string into a
// slice of strings.
func Strings(val cty.Value) ([]string, error) {
	if !val.IsKnown() {
		return nil, fmt.Errorf("value must be known")
	}
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if ty.Equals(cty.String) {
		return strings.Split(val.AsString(), ","), nil
	}
	if !ty.IsListType() && !ty.IsSetType() && !ty.IsTupleType() {
		return nil, fmt.Errorf("expected a list of strings, got %s", ty.FriendlyName())
	}
	out := make([]string, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if ev.IsNull() {
			return nil, fmt.Errorf("list element must not be null")
		}
		sv, err := convert.Convert(ev, cty.String)
		if err != nil {
			return nil, fmt.Errorf("expected a list of strings: %w", err)
		}
		out = append(out, sv.AsString())
	}
	return out, nil
}

// Validate checks the declaration of s for a storage of the given width and
// returns every problem found, joined.
func (s Set) Validate(bits int) error {
	if len(s) == 0 {
		return errors.New("flag array has no entries")
	}
	var errs []error
	names := make(map[string]string, len(s))
	for i, e := range s {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("flag #%d has no name", i))
		} else if prev, dup := names[strings.ToLower(e.Name)]; dup {
			errs = append(errs, fmt.Errorf("flag %q duplicates %q", e.Name, prev))
		} else {
			names[strings.ToLower(e.Name)] = e.Name
		}
		if bits < 64 && (e.Mask>>uint(bits) != 0 || e.Value>>uint(bits) != 0) {
			errs = append(errs, fmt.Errorf("flag %q does not fit in %d bits", e.Name, bits))
		}
		switch e.Kind {
		case Bit:
			if e.Value == 0 {
				errs = append(errs, fmt.Errorf("bit flag %q has no bits", e.Name))
			}
			if e.Value&^e.Mask != 0 {
				errs = append(errs, fmt.Errorf("bit flag %q has bits 0x%x outside its mask 0x%x", e.Name, e.Value&^e.Mask, e.Mask))
			}
			for _, later := range s[i+1:] {
				if later.Kind == Equal && later.Mask&e.Mask != 0 {
					errs = append(errs, fmt.Errorf("equal flag %q must be declared before bit flag %q", later.Name, e.Name))
				}
			}
		case Equal:
			if e.Mask == 0 {
				errs = append(errs, fmt.Errorf("equal flag %q has an empty mask", e.Name))
			}
			if e.Value&^e.Mask != 0 {
				errs = append(errs, fmt.Errorf("equal flag %q has bits 0x%x outside its mask 0x%x", e.Name, e.Value&^e.Mask, e.Mask))
			}
		default:
			errs = append(errs, fmt.Errorf("flag %q has unknown kind %d", e.Name, e.Kind))
		}
	}
	return errors.Join(errs...)
}
