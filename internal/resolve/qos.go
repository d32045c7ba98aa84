package resolve

import (
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/zclconf/go-cty/cty"
)

func qosIDParser() *parser.Parser {
	return parser.NewSimple[uint32](TypeQOSID, parseQOSID, dumpQOSID,
		parser.Describe("QOS given by id or name, reported by name"), parser.Renders(parser.SchemaString))
}

func qosNameParser() *parser.Parser {
	return parser.NewSimple[string](TypeQOSName, parseQOSName, dumpQOSName,
		parser.Describe("QOS name"), parser.Renders(parser.SchemaString))
}

func findQOS(c *parser.Context, ref reference, path cty.Path) (*model.QOS, error) {
	set, err := catalogs(c, "QOS "+ref.String(), path)
	if err != nil {
		return nil, err
	}
	if ref.numeric {
		if q, ok := set.QOSByID(ref.id); ok {
			return q, nil
		}
		// A QOS may be named with digits only.
		if ref.name != "" {
			if q, ok := set.QOSByName(ref.name); ok {
				return q, nil
			}
		}
	} else if q, ok := set.QOSByName(ref.name); ok {
		return q, nil
	}
	return nil, diag.Errorf(diag.CodeNotFound, path, "unknown QOS %s", ref)
}

func parseQOSID(c *parser.Context, v cty.Value, dst *uint32, path cty.Path) error {
	if v.IsNull() {
		*dst = 0
		return nil
	}
	ref, err := readReference(v, path)
	if err != nil {
		return err
	}
	if ref.numeric && ref.id == 0 {
		*dst = 0
		return nil
	}
	q, err := findQOS(c, ref, path)
	if err != nil {
		return err
	}
	*dst = q.ID
	return nil
}

func dumpQOSID(c *parser.Context, src *uint32, path cty.Path) (cty.Value, error) {
	if *src == 0 {
		return cty.NullVal(cty.String), nil
	}
	set := c.Catalogs()
	if set == nil {
		unresolved(c, path, "no catalog to name QOS %d", *src)
		return cty.NumberUIntVal(uint64(*src)), nil
	}
	q, ok := set.QOSByID(*src)
	if !ok {
		unresolved(c, path, "QOS %d is not in the catalog", *src)
		return cty.NumberUIntVal(uint64(*src)), nil
	}
	return cty.StringVal(q.Name), nil
}

func parseQOSName(c *parser.Context, v cty.Value, dst *string, path cty.Path) error {
	if v.IsNull() {
		*dst = ""
		return nil
	}
	ref, err := readReference(v, path)
	if err != nil {
		return err
	}
	if ref.String() == "" {
		*dst = ""
		return nil
	}
	q, err := findQOS(c, ref, path)
	if err != nil {
		if c.Forward() {
			logForward(c, "qos", ref.String(), path)
			*dst = ref.String()
			return nil
		}
		return err
	}
	*dst = q.Name
	return nil
}

func dumpQOSName(c *parser.Context, src *string, path cty.Path) (cty.Value, error) {
	return cty.StringVal(*src), nil
}
