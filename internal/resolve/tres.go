package resolve

import (
	"strings"

	"github.com/vk/slurmcodec/internal/catalog"
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// TRES entry keys of the list form.
const (
	tresKeyType  = "type"
	tresKeyName  = "name"
	tresKeyID    = "id"
	tresKeyCount = "count"
)

// tresStrParser converts the packed "1=4,2=100" string to a list of
// {type, name, id, count} objects. It parses the list form, the packed form
// and the named form "cpu=4,gres/gpu=2".
func tresStrParser() *parser.Parser {
	return parser.NewSimple[string](TypeTRESStr, parseTRESStr, dumpTRESStr,
		parser.Describe("List of trackable resources with counts"), parser.Renders(parser.SchemaObjectArray))
}

func parseTRESStr(c *parser.Context, v cty.Value, dst *string, path cty.Path) error {
	if v.IsNull() {
		*dst = ""
		return nil
	}
	var counts []model.TRESCount
	ty := v.Type()
	switch {
	case ty.Equals(cty.String):
		s := strings.TrimSpace(v.AsString())
		if s == "" {
			*dst = ""
			return nil
		}
		set, err := catalogs(c, "TRES", path)
		if err != nil {
			return err
		}
		for i, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ipath := diag.Index(path, i)
			key, count, ok := strings.Cut(part, "=")
			if !ok {
				return diag.Errorf(diag.CodeInvalidType, ipath, "TRES entry %q is not name=count", part)
			}
			ref, err := readReference(cty.StringVal(key), ipath)
			if err != nil {
				return err
			}
			t, err := findTRES(set, ref, ipath)
			if err != nil {
				return err
			}
			n, err := readCount(cty.StringVal(strings.TrimSpace(count)), ipath)
			if err != nil {
				return err
			}
			counts = append(counts, model.TRESCount{ID: t.ID, Count: n})
		}
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		set, err := catalogs(c, "TRES", path)
		if err != nil {
			return err
		}
		i := 0
		for it := v.ElementIterator(); it.Next(); i++ {
			_, ev := it.Element()
			tc, err := readTRESObject(set, ev, diag.Index(path, i))
			if err != nil {
				return err
			}
			counts = append(counts, tc)
		}
	default:
		return diag.Errorf(diag.CodeInvalidType, path, "expected a TRES list or string, got %s", ty.FriendlyName())
	}
	*dst = model.FormatTRESString(counts)
	return nil
}

func readTRESObject(set *catalog.Set, v cty.Value, path cty.Path) (model.TRESCount, error) {
	if v.IsNull() || !(v.Type().IsObjectType() || v.Type().IsMapType()) {
		return model.TRESCount{}, diag.Errorf(diag.CodeInvalidType, path, "expected a TRES object, got %s", v.Type().FriendlyName())
	}
	attrs := v.AsValueMap()
	for k := range attrs {
		switch k {
		case tresKeyType, tresKeyName, tresKeyID, tresKeyCount:
		default:
			return model.TRESCount{}, diag.Errorf(diag.CodeInvalidType, path.GetAttr(k), "unexpected TRES key %q", k)
		}
	}

	var ref reference
	if id, ok := attrs[tresKeyID]; ok && !id.IsNull() {
		r, err := readReference(id, path.GetAttr(tresKeyID))
		if err != nil {
			return model.TRESCount{}, err
		}
		if !r.numeric {
			return model.TRESCount{}, diag.Errorf(diag.CodeInvalidType, path.GetAttr(tresKeyID), "TRES id must be a number")
		}
		ref = reference{id: r.id, numeric: true}
	} else {
		typ, ok := attrs[tresKeyType]
		if !ok || typ.IsNull() || !typ.Type().Equals(cty.String) {
			return model.TRESCount{}, diag.Errorf(diag.CodeMissingRequired, path.GetAttr(tresKeyType), "TRES needs an id or a type")
		}
		ident := typ.AsString()
		if name, ok := attrs[tresKeyName]; ok && !name.IsNull() && name.Type().Equals(cty.String) && name.AsString() != "" {
			ident += "/" + name.AsString()
		}
		ref = reference{name: ident}
	}
	t, err := findTRES(set, ref, path)
	if err != nil {
		return model.TRESCount{}, err
	}

	count, ok := attrs[tresKeyCount]
	if !ok {
		return model.TRESCount{}, diag.Errorf(diag.CodeMissingRequired, path.GetAttr(tresKeyCount), "missing required field %q", tresKeyCount)
	}
	n, err := readCount(count, path.GetAttr(tresKeyCount))
	if err != nil {
		return model.TRESCount{}, err
	}
	return model.TRESCount{ID: t.ID, Count: n}, nil
}

func findTRES(set *catalog.Set, ref reference, path cty.Path) (*model.TRES, error) {
	if ref.numeric {
		if t, ok := set.TRESByID(ref.id); ok {
			return t, nil
		}
	} else if t, ok := set.TRESByIdent(ref.name); ok {
		return t, nil
	}
	return nil, diag.Errorf(diag.CodeNotFound, path, "unknown TRES %s", ref)
}

func readCount(v cty.Value, path cty.Path) (uint64, error) {
	num, err := convert.Convert(v, cty.Number)
	if err != nil || num.IsNull() {
		return 0, diag.Errorf(diag.CodeInvalidType, path, "TRES count must be a number")
	}
	var n uint64
	if err := gocty.FromCtyValue(num, &n); err != nil {
		return 0, diag.Errorf(diag.CodeOutOfRange, path, "invalid TRES count: %s", err)
	}
	return n, nil
}

func dumpTRESStr(c *parser.Context, src *string, path cty.Path) (cty.Value, error) {
	counts, err := model.ParseTRESString(*src)
	if err != nil {
		return cty.NilVal, diag.Wrap(diag.CodeInvalidType, path, err)
	}
	if len(counts) == 0 {
		return cty.ListValEmpty(tresObjectType), nil
	}
	set := c.Catalogs()
	if set == nil {
		unresolved(c, path, "no catalog to name TRES")
	}
	vals := make([]cty.Value, len(counts))
	for i, tc := range counts {
		t := model.TRES{ID: tc.ID}
		if set != nil {
			if found, ok := set.TRESByID(tc.ID); ok {
				t = *found
			} else {
				unresolved(c, diag.Index(path, i), "TRES %d is not in the catalog", tc.ID)
			}
		}
		vals[i] = cty.ObjectVal(map[string]cty.Value{
			tresKeyType:  cty.StringVal(t.Type),
			tresKeyName:  cty.StringVal(t.Name),
			tresKeyID:    cty.NumberUIntVal(uint64(tc.ID)),
			tresKeyCount: cty.NumberUIntVal(tc.Count),
		})
	}
	return cty.ListVal(vals), nil
}

var tresObjectType = cty.Object(map[string]cty.Type{
	tresKeyType:  cty.String,
	tresKeyName:  cty.String,
	tresKeyID:    cty.Number,
	tresKeyCount: cty.Number,
})
