package resolve

import (
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/zclconf/go-cty/cty"
)

func assocShortParser() *parser.Parser {
	return parser.NewArray[model.AssocShort](TypeAssocShort, []*parser.Field{
		parser.Linked("cluster", parser.TypeString, func(a *model.AssocShort) *string { return &a.Cluster }),
		parser.Linked("account", parser.TypeString, func(a *model.AssocShort) *string { return &a.Account }),
		parser.Linked("user", parser.TypeString, func(a *model.AssocShort) *string { return &a.User }),
		parser.Linked("partition", parser.TypeString, func(a *model.AssocShort) *string { return &a.Partition }),
		parser.Linked("id", parser.TypeUint32, func(a *model.AssocShort) *uint32 { return &a.ID }),
	}, parser.Describe("Association identified by cluster, account, user and partition"))
}

func assocIDParser() *parser.Parser {
	return parser.NewSimple[uint32](TypeAssocID, parseAssocID, dumpAssocID,
		parser.Describe("Association given by id or composite key"), parser.Renders(parser.SchemaObject))
}

func parseAssocID(c *parser.Context, v cty.Value, dst *uint32, path cty.Path) error {
	if v.IsNull() {
		*dst = 0
		return nil
	}
	set, err := catalogs(c, "association", path)
	if err != nil {
		return err
	}
	ty := v.Type()
	if ty.IsObjectType() || ty.IsMapType() {
		var key model.AssocShort
		if err := parser.ParseAs(c, TypeAssocShort, v, &key, path); err != nil {
			return err
		}
		if key.ID != 0 {
			if a, ok := set.AssocByID(key.ID); ok {
				*dst = a.ID
				return nil
			}
		}
		a, ok := set.AssocByKey(key)
		if !ok {
			return diag.Errorf(diag.CodeNotFound, path, "unknown association %s/%s/%s/%s", key.Cluster, key.Account, key.User, key.Partition)
		}
		*dst = a.ID
		return nil
	}

	ref, err := readReference(v, path)
	if err != nil {
		return err
	}
	if !ref.numeric {
		return diag.Errorf(diag.CodeInvalidType, path, "association must be an id or an object, got %q", ref.name)
	}
	a, ok := set.AssocByID(ref.id)
	if !ok {
		return diag.Errorf(diag.CodeNotFound, path, "unknown association %d", ref.id)
	}
	*dst = a.ID
	return nil
}

func dumpAssocID(c *parser.Context, src *uint32, path cty.Path) (cty.Value, error) {
	if *src == 0 {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	short := model.AssocShort{ID: *src}
	if set := c.Catalogs(); set == nil {
		unresolved(c, path, "no catalog to name association %d", *src)
	} else if a, ok := set.AssocByID(*src); ok {
		short = a.Short()
	} else {
		unresolved(c, path, "association %d is not in the catalog", *src)
	}
	return parser.DumpAs(c, TypeAssocShort, &short, path)
}
