package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/slurmcodec/internal/ctxlog"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/zclconf/go-cty/cty"
)

// ValidateRegistry checks every descriptor against the others and against
// the Go storage it converts. All violations are reported together.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	owners := make(map[*parser.Field]*parser.Parser)
	lists := make(map[*parser.Field]*parser.Parser)

	for _, p := range r.All() {
		if p.Model == nil {
			errs = append(errs, fmt.Sprintf("parser '%s': has no model", p.Type))
			continue
		}
		if got := fmt.Sprintf("%T", p.New()); got != p.Storage() {
			errs = append(errs, fmt.Sprintf("parser '%s': allocates %s instead of %s", p.Type, got, p.Storage()))
		}
		switch m := p.Model.(type) {
		case *parser.Simple:
			errs = append(errs, r.checkLeaf(p, m.Parse != nil, m.Dump != nil, m.Direction)...)
		case *parser.Complex:
			errs = append(errs, r.checkLeaf(p, m.Parse != nil, m.Dump != nil, m.Direction)...)
		case *parser.Array:
			errs = append(errs, r.checkArray(p, m)...)
			if len(m.Fields) > 0 {
				if other, shared := lists[m.Fields[0]]; shared {
					errs = append(errs, fmt.Sprintf("parser '%s': shares its field list with '%s'", p.Type, other.Type))
				}
				lists[m.Fields[0]] = p
			}
			for _, f := range m.Fields {
				if f == nil {
					continue
				}
				if other, dup := owners[f]; dup {
					errs = append(errs, fmt.Sprintf("parser '%s': field %s is also listed by '%s'", p.Type, f, other.Type))
				}
				owners[f] = p
			}
		case *parser.List:
			errs = append(errs, r.checkTarget(p, "element", m.Elem, m.ElemStorage())...)
		case *parser.NTArray:
			errs = append(errs, r.checkTarget(p, "element", m.Elem, m.ElemStorage())...)
		case *parser.NTPtrArray:
			errs = append(errs, r.checkTarget(p, "element", m.Elem, m.ElemStorage())...)
		case *parser.Pointer:
			errs = append(errs, r.checkTarget(p, "target", m.Target, m.TargetStorage())...)
		case *parser.FlagArray:
			if err := m.Flags.Validate(m.Bits); err != nil {
				for _, line := range strings.Split(err.Error(), "\n") {
					errs = append(errs, fmt.Sprintf("parser '%s': %s", p.Type, line))
				}
			}
		default:
			errs = append(errs, fmt.Sprintf("parser '%s': unsupported model %T", p.Type, p.Model))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validated.", "parsers", r.Len())
	return nil
}

// MustValidate panics when ValidateRegistry fails. The descriptor tables are
// static, so a failure is a programming error.
func (r *Registry) MustValidate(ctx context.Context) {
	if err := r.ValidateRegistry(ctx); err != nil {
		panic(err)
	}
}

func (r *Registry) checkLeaf(p *parser.Parser, canParse, canDump bool, dir parser.Direction) []string {
	var errs []string
	switch dir {
	case parser.Both:
		if !canParse {
			errs = append(errs, fmt.Sprintf("parser '%s': has no parse function", p.Type))
		}
		if !canDump {
			errs = append(errs, fmt.Sprintf("parser '%s': has no dump function", p.Type))
		}
	case parser.DumpOnly:
		if canParse {
			errs = append(errs, fmt.Sprintf("parser '%s': is dump-only but has a parse function", p.Type))
		}
		if !canDump {
			errs = append(errs, fmt.Sprintf("parser '%s': is dump-only but has no dump function", p.Type))
		}
	case parser.ParseOnly:
		if canDump {
			errs = append(errs, fmt.Sprintf("parser '%s': is parse-only but has a dump function", p.Type))
		}
		if !canParse {
			errs = append(errs, fmt.Sprintf("parser '%s': is parse-only but has no parse function", p.Type))
		}
	}
	return errs
}

// checkTarget checks a reference from p to the descriptor id, which must
// convert storage.
func (r *Registry) checkTarget(p *parser.Parser, role string, id parser.TypeID, storage string) []string {
	t, ok := r.Lookup(id)
	if !ok {
		return []string{fmt.Sprintf("parser '%s': %s type '%s' is not registered", p.Type, role, id)}
	}
	if _, complex := t.Model.(*parser.Complex); complex {
		return []string{fmt.Sprintf("parser '%s': %s type '%s' is complex and needs the enclosing record", p.Type, role, id)}
	}
	if t.Storage() != storage {
		return []string{fmt.Sprintf("parser '%s': %s type '%s' converts %s, not %s", p.Type, role, id, t.Storage(), storage)}
	}
	return nil
}

func (r *Registry) checkArray(p *parser.Parser, m *parser.Array) []string {
	var errs []string
	if len(m.Fields) == 0 {
		return []string{fmt.Sprintf("parser '%s': has no fields", p.Type)}
	}

	byKey := make(map[string][]*parser.Field)
	for _, f := range m.Fields {
		if f == nil {
			errs = append(errs, fmt.Sprintf("parser '%s': has a nil field", p.Type))
			continue
		}
		if f.Owner() != p {
			owner := "no parser"
			if f.Owner() != nil {
				owner = "'" + string(f.Owner().Type) + "'"
			}
			errs = append(errs, fmt.Sprintf("parser '%s': field %s belongs to %s", p.Type, f, owner))
		}
		if f.Overloads < 0 {
			errs = append(errs, fmt.Sprintf("parser '%s': field %s has a negative overload count", p.Type, f))
		}
		errs = append(errs, r.checkField(p, f)...)
		if f.Kind != parser.FieldSkip {
			byKey[f.Key] = append(byKey[f.Key], f)
		}
	}

	// Key uniqueness and storage sharing both need a matching overload count.
	for key, fields := range byKey {
		if len(fields) < 2 {
			continue
		}
		for _, f := range fields {
			if f.Overloads != len(fields) {
				errs = append(errs, fmt.Sprintf("parser '%s': key '%s' is used by %d fields but field %s declares %d overloads", p.Type, key, len(fields), f, f.Overloads))
			}
		}
	}
	for _, f := range m.Fields {
		if f == nil || f.Kind == parser.FieldSkip {
			continue
		}
		n := storageGroup(m, f)
		if n > 1 && f.Overloads != n {
			errs = append(errs, fmt.Sprintf("parser '%s': field %s shares storage with %d fields but declares %d overloads", p.Type, f, n, f.Overloads))
		}
		if n == 1 && f.Overloads > 1 && len(byKey[f.Key]) != f.Overloads {
			errs = append(errs, fmt.Sprintf("parser '%s': field %s declares %d overloads but shares nothing", p.Type, f, f.Overloads))
		}
	}

	// A key must not be both a value and an object of nested keys.
	for key := range byKey {
		for other := range byKey {
			if key != "" && strings.HasPrefix(other, key+parser.KeySeparator) {
				errs = append(errs, fmt.Sprintf("parser '%s': key '%s' is a prefix of key '%s'", p.Type, key, other))
			}
		}
	}
	return errs
}

// storageGroup counts the fields of m, f included, that convert f's member.
func storageGroup(m *parser.Array, f *parser.Field) int {
	n := 0
	for _, o := range m.Fields {
		if o == f || (o != nil && o.Kind != parser.FieldSkip && f.SharesStorage(o)) {
			n++
		}
	}
	return n
}

func (r *Registry) checkField(p *parser.Parser, f *parser.Field) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("parser '%s': field %s: ", p.Type, f)+fmt.Sprintf(format, args...))
	}

	switch f.Kind {
	case parser.FieldLinked, parser.FieldWhole:
		if f.Key == "" {
			fail("has no key")
		}
		for _, seg := range f.Segments() {
			if seg == "" {
				fail("has an empty key segment")
			}
		}
		if f.Type == "" {
			fail("has no type")
			break
		}
		t, ok := r.Lookup(f.Type)
		if !ok {
			fail("type '%s' is not registered", f.Type)
			break
		}
		_, isComplex := t.Model.(*parser.Complex)
		if f.Kind == parser.FieldWhole && !isComplex {
			fail("type '%s' is not complex and cannot receive the whole record", f.Type)
		}
		if f.Kind == parser.FieldLinked && isComplex {
			fail("type '%s' is complex and must be referenced as a whole record field", f.Type)
		}
		if t.Size != f.Size {
			fail("type '%s' converts %d bytes but the member has %d", f.Type, t.Size, f.Size)
		} else if t.Storage() != f.Storage() {
			fail("type '%s' converts %s but the member is %s", f.Type, t.Storage(), f.Storage())
		}
	case parser.FieldSkip:
		if f.Key != "" || f.Type != "" {
			fail("is skipped but has a key or type")
		}
	case parser.FieldRemoved:
		if f.Key == "" {
			fail("has no key")
		}
		if f.Type != "" {
			fail("is removed but still has type '%s'", f.Type)
		}
		if f.Required {
			fail("is removed but required")
		}
		if f.Tombstone.Type() == cty.NilType {
			fail("is removed but has no tombstone value")
		}
	default:
		fail("has unknown kind %d", f.Kind)
	}
	return errs
}
