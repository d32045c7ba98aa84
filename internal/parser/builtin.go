package parser

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/sentinel"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Type ids of the scalar descriptors every registry carries.
const (
	TypeString    TypeID = "STRING"
	TypeBool      TypeID = "BOOL"
	TypeBool16    TypeID = "BOOL16"
	TypeUint16    TypeID = "UINT16"
	TypeUint32    TypeID = "UINT32"
	TypeUint64    TypeID = "UINT64"
	TypeInt32     TypeID = "INT32"
	TypeInt64     TypeID = "INT64"
	TypeFloat64   TypeID = "FLOAT64"
	TypeTimestamp TypeID = "TIMESTAMP"

	TypeUint16NoVal  TypeID = "UINT16_NO_VAL"
	TypeUint32NoVal  TypeID = "UINT32_NO_VAL"
	TypeUint64NoVal  TypeID = "UINT64_NO_VAL"
	TypeInt32NoVal   TypeID = "INT32_NO_VAL"
	TypeInt64NoVal   TypeID = "INT64_NO_VAL"
	TypeFloat64NoVal TypeID = "FLOAT64_NO_VAL"

	TypeUint32NoValStruct  TypeID = "UINT32_NO_VAL_STRUCT"
	TypeUint64NoValStruct  TypeID = "UINT64_NO_VAL_STRUCT"
	TypeFloat64NoValStruct TypeID = "FLOAT64_NO_VAL_STRUCT"

	TypeStringList TypeID = "STRING_LIST"
	TypeCSVString  TypeID = "CSV_STRING"
)

// Builtins returns fresh scalar descriptors.
func Builtins() []*Parser {
	return []*Parser{
		NewSimple[string](TypeString, parseString, dumpString, Describe("String"), Renders(SchemaString)),
		NewSimple[bool](TypeBool, parseBool, dumpBool, Describe("Boolean"), Renders(SchemaBoolean)),
		NewSimple[uint16](TypeBool16, parseBool16, dumpBool16, Describe("Boolean stored in 16 bits"), Renders(SchemaBoolean)),
		NewSimple[uint16](TypeUint16, parseInt[uint16], dumpInt[uint16], Describe("16 bit unsigned integer"), Renders(SchemaInteger)),
		NewSimple[uint32](TypeUint32, parseInt[uint32], dumpInt[uint32], Describe("32 bit unsigned integer"), Renders(SchemaInteger)),
		NewSimple[uint64](TypeUint64, parseInt[uint64], dumpInt[uint64], Describe("64 bit unsigned integer"), Renders(SchemaInteger)),
		NewSimple[int32](TypeInt32, parseInt[int32], dumpInt[int32], Describe("32 bit integer"), Renders(SchemaInteger)),
		NewSimple[int64](TypeInt64, parseInt[int64], dumpInt[int64], Describe("64 bit integer"), Renders(SchemaInteger)),
		NewSimple[float64](TypeFloat64, parseFloat, dumpFloat, Describe("64 bit floating point number"), Renders(SchemaNumber)),
		NewSimple[int64](TypeTimestamp, parseTimestamp, dumpTimestamp, Describe("UNIX timestamp in seconds"), Renders(SchemaInteger)),

		noVal(TypeUint16NoVal, sentinel.Uint16),
		noVal(TypeUint32NoVal, sentinel.Uint32),
		noVal(TypeUint64NoVal, sentinel.Uint64),
		noVal(TypeInt32NoVal, sentinel.Int32),
		noVal(TypeInt64NoVal, sentinel.Int64),
		noVal(TypeFloat64NoVal, sentinel.Float64),

		noValStruct(TypeUint32NoValStruct, sentinel.Uint32),
		noValStruct(TypeUint64NoValStruct, sentinel.Uint64),
		noValStruct(TypeFloat64NoValStruct, sentinel.Float64),

		NewList[string](TypeStringList, TypeString, Describe("List of strings")),
		NewSimple[string](TypeCSVString, parseCSV, dumpCSV, Describe("Comma delimited list of strings"), Renders(SchemaStringArray)),
	}
}

// noVal converts a raw integer that carries the width's reserved sentinels.
func noVal[T sentinel.Number](id TypeID, codec sentinel.Codec[T]) *Parser {
	return NewSimple[T](id,
		func(c *Context, v cty.Value, dst *T, path cty.Path) error {
			raw, err := codec.ParseRaw(v)
			if err != nil {
				return sentinelError(path, err)
			}
			*dst = raw
			return nil
		},
		func(c *Context, src *T, path cty.Path) (cty.Value, error) {
			return codec.DumpRaw(c.Mode(), *src), nil
		},
		Describe(codec.Name()+" with reserved unspecified and unbounded values"),
		Renders(noValSchema(codec)),
	)
}

// noValStruct converts the explicit sentinel.Value wrapper.
func noValStruct[T sentinel.Number](id TypeID, codec sentinel.Codec[T]) *Parser {
	return NewSimple[sentinel.Value[T]](id,
		func(c *Context, v cty.Value, dst *sentinel.Value[T], path cty.Path) error {
			sv, err := codec.Parse(v)
			if err != nil {
				return sentinelError(path, err)
			}
			*dst = sv
			return nil
		},
		func(c *Context, src *sentinel.Value[T], path cty.Path) (cty.Value, error) {
			return codec.Dump(c.Mode(), *src), nil
		},
		Describe(codec.Name()+" that may be unset or unbounded"),
		Renders(noValSchema(codec)),
	)
}

func noValSchema[T sentinel.Number](codec sentinel.Codec[T]) SchemaType {
	if codec.Name() == sentinel.Float64.Name() {
		return SchemaNoValNumber
	}
	return SchemaNoValInteger
}

func sentinelError(path cty.Path, err error) error {
	if errors.Is(err, sentinel.ErrRange) {
		return diag.Wrap(diag.CodeOutOfRange, path, err)
	}
	return diag.Wrap(diag.CodeInvalidType, path, err)
}

func parseString(c *Context, v cty.Value, dst *string, path cty.Path) error {
	if v.IsNull() {
		*dst = ""
		return nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return diag.Errorf(diag.CodeInvalidType, path, "expected a string, got %s", v.Type().FriendlyName())
	}
	*dst = s.AsString()
	return nil
}

func dumpString(c *Context, src *string, path cty.Path) (cty.Value, error) {
	return cty.StringVal(*src), nil
}

func parseBool(c *Context, v cty.Value, dst *bool, path cty.Path) error {
	b, err := toBool(v, path)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func dumpBool(c *Context, src *bool, path cty.Path) (cty.Value, error) {
	return cty.BoolVal(*src), nil
}

func parseBool16(c *Context, v cty.Value, dst *uint16, path cty.Path) error {
	b, err := toBool(v, path)
	if err != nil {
		return err
	}
	*dst = 0
	if b {
		*dst = 1
	}
	return nil
}

func dumpBool16(c *Context, src *uint16, path cty.Path) (cty.Value, error) {
	return cty.BoolVal(*src != 0), nil
}

// toBool accepts booleans, "true"/"false"/"yes"/"no" strings and numbers.
func toBool(v cty.Value, path cty.Path) (bool, error) {
	if v.IsNull() {
		return false, nil
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.Bool):
		return v.True(), nil
	case ty.Equals(cty.Number):
		return v.AsBigFloat().Sign() != 0, nil
	case ty.Equals(cty.String):
		switch strings.ToLower(strings.TrimSpace(v.AsString())) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0", "":
			return false, nil
		}
	}
	return false, diag.Errorf(diag.CodeInvalidType, path, "expected a boolean, got %s", ty.FriendlyName())
}

type integer interface {
	~uint16 | ~uint32 | ~uint64 | ~int32 | ~int64
}

func parseInt[T integer](c *Context, v cty.Value, dst *T, path cty.Path) error {
	if v.IsNull() {
		*dst = 0
		return nil
	}
	num, err := convert.Convert(v, cty.Number)
	if err != nil {
		return diag.Errorf(diag.CodeInvalidType, path, "expected an integer, got %s", v.Type().FriendlyName())
	}
	if !num.AsBigFloat().IsInt() {
		return diag.Errorf(diag.CodeOutOfRange, path, "expected an integer, got %s", num.AsBigFloat().Text('g', -1))
	}
	var out T
	if err := gocty.FromCtyValue(num, &out); err != nil {
		return diag.Errorf(diag.CodeOutOfRange, path, "%s does not fit in %T", num.AsBigFloat().Text('f', -1), out)
	}
	*dst = out
	return nil
}

func dumpInt[T integer](c *Context, src *T, path cty.Path) (cty.Value, error) {
	v, err := gocty.ToCtyValue(*src, cty.Number)
	if err != nil {
		return cty.NilVal, diag.Wrap(diag.CodeInvalidType, path, err)
	}
	return v, nil
}

func parseFloat(c *Context, v cty.Value, dst *float64, path cty.Path) error {
	if v.IsNull() {
		*dst = 0
		return nil
	}
	num, err := convert.Convert(v, cty.Number)
	if err != nil {
		return diag.Errorf(diag.CodeInvalidType, path, "expected a number, got %s", v.Type().FriendlyName())
	}
	f, _ := num.AsBigFloat().Float64()
	*dst = f
	return nil
}

func dumpFloat(c *Context, src *float64, path cty.Path) (cty.Value, error) {
	if math.IsNaN(*src) {
		return cty.NilVal, diag.Errorf(diag.CodeOutOfRange, path, "NaN cannot be represented")
	}
	return cty.NumberFloatVal(*src), nil
}

// parseTimestamp accepts seconds since the epoch or an RFC 3339 string.
func parseTimestamp(c *Context, v cty.Value, dst *int64, path cty.Path) error {
	if !v.IsNull() && v.Type().Equals(cty.String) {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v.AsString())); err == nil {
			*dst = t.Unix()
			return nil
		}
	}
	return parseInt(c, v, dst, path)
}

func dumpTimestamp(c *Context, src *int64, path cty.Path) (cty.Value, error) {
	return cty.NumberIntVal(*src), nil
}

func parseCSV(c *Context, v cty.Value, dst *string, path cty.Path) error {
	if v.IsNull() {
		*dst = ""
		return nil
	}
	ty := v.Type()
	if ty.Equals(cty.String) {
		*dst = strings.Join(splitCSV(v.AsString()), ",")
		return nil
	}
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return diag.Errorf(diag.CodeInvalidType, path, "expected a list or a comma delimited string, got %s", ty.FriendlyName())
	}
	var parts []string
	i := 0
	for it := v.ElementIterator(); it.Next(); i++ {
		_, ev := it.Element()
		var s string
		if err := parseString(c, ev, &s, diag.Index(path, i)); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	*dst = strings.Join(parts, ",")
	return nil
}

func dumpCSV(c *Context, src *string, path cty.Path) (cty.Value, error) {
	parts := splitCSV(*src)
	if len(parts) == 0 {
		return cty.EmptyTupleVal, nil
	}
	vals := make([]cty.Value, len(parts))
	for i, p := range parts {
		vals[i] = cty.StringVal(p)
	}
	return cty.TupleVal(vals), nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
