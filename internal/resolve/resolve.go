// Package resolve converts symbolic references (QOS names, TRES identifiers,
// associations) to the ids the records store, and back, using the catalogs
// of the parser.Context.
//
// Parsing a reference that names nothing is a not_found error, unless the
// field was declared parser.Forward(): then the literal is kept. Dumping
// prefers names; an id without a catalog entry dumps as its number together
// with an unresolved_reference warning.
package resolve

import (
	"strconv"
	"strings"

	"github.com/vk/slurmcodec/internal/catalog"
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Type ids of the reference descriptors.
const (
	TypeQOSID       parser.TypeID = "QOS_ID"
	TypeQOSName     parser.TypeID = "QOS_NAME"
	TypeQOSNameList parser.TypeID = "QOS_NAME_LIST"
	TypeTRESStr     parser.TypeID = "TRES_STR"
	TypeAssocID     parser.TypeID = "ASSOC_ID"
	TypeAssocShort  parser.TypeID = "ASSOC_SHORT"
	TypeAssocPtr    parser.TypeID = "ASSOC_SHORT_PTR"
)

// Parsers returns fresh reference descriptors.
func Parsers() []*parser.Parser {
	return []*parser.Parser{
		qosIDParser(),
		qosNameParser(),
		parser.NewList[string](TypeQOSNameList, TypeQOSName, parser.Describe("List of QOS names")),
		tresStrParser(),
		assocShortParser(),
		parser.NewPointer[model.AssocShort](TypeAssocPtr, TypeAssocShort, parser.Nullable(), parser.Describe("Association, null when unknown")),
		assocIDParser(),
	}
}

// catalogs returns the catalogs of c or a no_catalog error.
func catalogs(c *parser.Context, what string, path cty.Path) (*catalog.Set, error) {
	set := c.Catalogs()
	if set == nil {
		return nil, diag.Errorf(diag.CodeNoCatalog, path, "no catalog available to resolve %s", what)
	}
	return set, nil
}

// reference is a reference given either by number or by name.
type reference struct {
	id      uint32
	name    string
	numeric bool
}

func (r reference) String() string {
	if r.name != "" {
		return r.name
	}
	return strconv.FormatUint(uint64(r.id), 10)
}

// readReference accepts a whole number, a numeric string or a name.
func readReference(v cty.Value, path cty.Path) (reference, error) {
	ty := v.Type()
	switch {
	case ty.Equals(cty.Number):
		var id uint32
		if err := gocty.FromCtyValue(v, &id); err != nil {
			return reference{}, diag.Errorf(diag.CodeOutOfRange, path, "invalid id: %s", err)
		}
		return reference{id: id, numeric: true}, nil
	case ty.Equals(cty.String):
		s := strings.TrimSpace(v.AsString())
		if num, err := convert.Convert(cty.StringVal(s), cty.Number); err == nil {
			var id uint32
			if gocty.FromCtyValue(num, &id) == nil {
				return reference{id: id, name: s, numeric: true}, nil
			}
		}
		return reference{name: s}, nil
	}
	return reference{}, diag.Errorf(diag.CodeInvalidType, path, "expected an id or a name, got %s", ty.FriendlyName())
}

func logForward(c *parser.Context, kind, literal string, path cty.Path) {
	c.Logger().Debug("Forward reference left unresolved.", "kind", kind, "name", literal, "path", diag.FormatPath(c.Path(path)))
}

func unresolved(c *parser.Context, path cty.Path, format string, args ...any) {
	c.Warn(diag.CodeUnresolvedReference, path, format, args...)
}
