// Package sentinel converts fixed-width numbers that reserve their highest
// representable values as "unspecified" and "unbounded" markers to and from
// cty values.
//
// Unsigned widths reserve max-1 for unspecified (NO_VAL) and max for unbounded
// (INFINITE). Signed widths do the same with MaxInt-1 and MaxInt. float64 uses
// NaN and +Inf.
package sentinel

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Mode selects the dump encoding.
type Mode int

const (
	// Compact dumps null, "Infinity" or a plain number.
	Compact Mode = iota
	// Verbose always dumps the {present, unbounded, value} object.
	Verbose
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Verbose {
		return "verbose"
	}
	return "compact"
}

// ParseMode maps "compact" or "verbose" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "compact":
		return Compact, nil
	case "verbose":
		return Verbose, nil
	default:
		return Compact, fmt.Errorf("unknown mode %q: must be 'compact' or 'verbose'", s)
	}
}

// Keys of the explicit tree-object form.
const (
	KeyPresent   = "present"
	KeyUnbounded = "unbounded"
	KeyValue     = "value"
)

// InfinityString is the compact-mode rendering of the unbounded state.
const InfinityString = "Infinity"

// Reserved values per width.
const (
	NoVal16     uint16 = math.MaxUint16 - 1
	Infinite16  uint16 = math.MaxUint16
	NoVal       uint32 = math.MaxUint32 - 1
	Infinite    uint32 = math.MaxUint32
	NoVal64     uint64 = math.MaxUint64 - 1
	Infinite64  uint64 = math.MaxUint64
	NoValI32    int32  = math.MaxInt32 - 1
	InfiniteI32 int32  = math.MaxInt32
	NoValI64    int64  = math.MaxInt64 - 1
	InfiniteI64 int64  = math.MaxInt64
)

// Number is the set of widths the codec supports.
type Number interface {
	~uint16 | ~uint32 | ~uint64 | ~int32 | ~int64 | ~float64
}

// Value is the canonical in-memory form of a sentinel-bearing number. The
// zero Value is "unspecified".
type Value[T Number] struct {
	Present   bool
	Unbounded bool
	Value     T
}

// Unset returns the unspecified state.
func Unset[T Number]() Value[T] { return Value[T]{} }

// Unlimited returns the unbounded state.
func Unlimited[T Number]() Value[T] { return Value[T]{Present: true, Unbounded: true} }

// Of returns a concrete value.
func Of[T Number](v T) Value[T] { return Value[T]{Present: true, Value: v} }

// State names the three states, for logs and tests.
func (v Value[T]) State() string {
	switch {
	case !v.Present:
		return "unspecified"
	case v.Unbounded:
		return "unbounded"
	default:
		return "value"
	}
}

// Codec folds a Value into the raw reserved encoding of one width and back.
type Codec[T Number] struct {
	name     string
	noVal    T
	infinite T
	min, max *big.Float
	float    bool
}

// Widths supported by the codec.
var (
	Uint16  = Codec[uint16]{name: "uint16", noVal: NoVal16, infinite: Infinite16, min: big.NewFloat(0), max: new(big.Float).SetUint64(math.MaxUint16)}
	Uint32  = Codec[uint32]{name: "uint32", noVal: NoVal, infinite: Infinite, min: big.NewFloat(0), max: new(big.Float).SetUint64(math.MaxUint32)}
	Uint64  = Codec[uint64]{name: "uint64", noVal: NoVal64, infinite: Infinite64, min: big.NewFloat(0), max: new(big.Float).SetUint64(math.MaxUint64)}
	Int32   = Codec[int32]{name: "int32", noVal: NoValI32, infinite: InfiniteI32, min: big.NewFloat(math.MinInt32), max: big.NewFloat(math.MaxInt32)}
	Int64   = Codec[int64]{name: "int64", noVal: NoValI64, infinite: InfiniteI64, min: new(big.Float).SetInt64(math.MinInt64), max: new(big.Float).SetInt64(math.MaxInt64)}
	Float64 = Codec[float64]{name: "float64", float: true}
)

// Name returns the width name.
func (c Codec[T]) Name() string { return c.name }

// NoVal returns the raw unspecified marker.
func (c Codec[T]) NoVal() T {
	if c.float {
		return T(math.NaN())
	}
	return c.noVal
}

// InfiniteValue returns the raw unbounded marker.
func (c Codec[T]) InfiniteValue() T {
	if c.float {
		return T(math.Inf(1))
	}
	return c.infinite
}

// Wrap decodes a raw stored number.
func (c Codec[T]) Wrap(raw T) Value[T] {
	if c.float {
		f := float64(raw)
		switch {
		case math.IsNaN(f):
			return Value[T]{}
		case math.IsInf(f, 1):
			return Unlimited[T]()
		}
		return Of(raw)
	}
	switch raw {
	case c.noVal:
		return Value[T]{}
	case c.infinite:
		return Unlimited[T]()
	}
	return Of(raw)
}

// Unwrap encodes a Value into its raw stored number.
func (c Codec[T]) Unwrap(v Value[T]) T {
	switch {
	case !v.Present:
		return c.NoVal()
	case v.Unbounded:
		return c.InfiniteValue()
	}
	return v.Value
}

// Dump renders v in the requested mode.
func (c Codec[T]) Dump(mode Mode, v Value[T]) cty.Value {
	if c.float && v.Present {
		// A stored NaN is unspecified and +Inf unbounded, whatever the flags say.
		v = c.Wrap(c.Unwrap(v))
	}
	if mode == Verbose {
		num := cty.Zero
		if v.Present && !v.Unbounded {
			num = c.number(v.Value)
		}
		return cty.ObjectVal(map[string]cty.Value{
			KeyPresent:   cty.BoolVal(v.Present),
			KeyUnbounded: cty.BoolVal(v.Unbounded),
			KeyValue:     num,
		})
	}
	switch {
	case !v.Present:
		return cty.NullVal(cty.Number)
	case v.Unbounded:
		return cty.StringVal(InfinityString)
	}
	return c.number(v.Value)
}

// DumpRaw is Dump(mode, Wrap(raw)).
func (c Codec[T]) DumpRaw(mode Mode, raw T) cty.Value {
	return c.Dump(mode, c.Wrap(raw))
}

// ParseRaw is Unwrap(Parse(val)).
func (c Codec[T]) ParseRaw(val cty.Value) (T, error) {
	v, err := c.Parse(val)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.Unwrap(v), nil
}

func (c Codec[T]) number(v T) cty.Value {
	switch n := any(v).(type) {
	case uint16:
		return cty.NumberUIntVal(uint64(n))
	case uint32:
		return cty.NumberUIntVal(uint64(n))
	case uint64:
		return cty.NumberUIntVal(n)
	case int32:
		return cty.NumberIntVal(int64(n))
	case int64:
		return cty.NumberIntVal(n)
	case float64:
		return cty.NumberFloatVal(n)
	}
	// Named types built on the supported widths.
	if c.float {
		return cty.NumberFloatVal(float64(v))
	}
	if c.min.Sign() < 0 {
		return cty.NumberIntVal(int64(v))
	}
	return cty.NumberUIntVal(uint64(v))
}

// Parse accepts a null, a number, an infinity string, a numeric string or the
// explicit object form.
func (c Codec[T]) Parse(val cty.Value) (Value[T], error) {
	if !val.IsKnown() {
		return Value[T]{}, fmt.Errorf("value must be known")
	}
	if val.IsNull() {
		return Value[T]{}, nil
	}

	ty := val.Type()
	switch {
	case ty.Equals(cty.Number):
		return c.parseNumber(val.AsBigFloat())
	case ty.Equals(cty.String):
		s := strings.TrimSpace(val.AsString())
		switch strings.ToLower(s) {
		case "":
			return Value[T]{}, nil
		case "infinity", "inf", "+inf", "unlimited":
			return Unlimited[T](), nil
		}
		num, err := convert.Convert(cty.StringVal(s), cty.Number)
		if err != nil {
			return Value[T]{}, fmt.Errorf("expected a %s number, got string %q", c.name, s)
		}
		return c.parseNumber(num.AsBigFloat())
	case ty.IsObjectType() || ty.IsMapType():
		return c.parseObject(val)
	default:
		return Value[T]{}, fmt.Errorf("expected a %s number, null or object, got %s", c.name, ty.FriendlyName())
	}
}

func (c Codec[T]) parseObject(val cty.Value) (Value[T], error) {
	attrs := val.AsValueMap()
	for k := range attrs {
		switch k {
		case KeyPresent, KeyUnbounded, KeyValue:
		default:
			return Value[T]{}, fmt.Errorf("unexpected key %q in %s object", k, c.name)
		}
	}

	flag := func(key string) (bool, bool, error) {
		v, ok := attrs[key]
		if !ok || v.IsNull() {
			return false, false, nil
		}
		b, err := convert.Convert(v, cty.Bool)
		if err != nil {
			return false, false, fmt.Errorf("%q must be a bool: %w", key, err)
		}
		return b.True(), true, nil
	}

	present, hasPresent, err := flag(KeyPresent)
	if err != nil {
		return Value[T]{}, err
	}
	unbounded, _, err := flag(KeyUnbounded)
	if err != nil {
		return Value[T]{}, err
	}
	num, hasValue := attrs[KeyValue]
	if hasValue && num.IsNull() {
		hasValue = false
	}
	if !hasPresent {
		present = unbounded || hasValue
	}

	switch {
	case !present:
		return Value[T]{}, nil
	case unbounded:
		return Unlimited[T](), nil
	case !hasValue:
		return Value[T]{}, fmt.Errorf("%q is set but %q is missing", KeyPresent, KeyValue)
	}
	num, err = convert.Convert(num, cty.Number)
	if err != nil {
		return Value[T]{}, fmt.Errorf("%q must be a number: %w", KeyValue, err)
	}
	return c.parseNumber(num.AsBigFloat())
}

func (c Codec[T]) parseNumber(bf *big.Float) (Value[T], error) {
	if c.float {
		if bf.IsInf() {
			if bf.Sign() > 0 {
				return Unlimited[T](), nil
			}
			return Value[T]{}, fmt.Errorf("%w: negative infinity is not a valid %s", ErrRange, c.name)
		}
		f, _ := bf.Float64()
		return Of(T(f)), nil
	}

	if bf.IsInf() {
		if bf.Sign() > 0 {
			return Unlimited[T](), nil
		}
		return Value[T]{}, nil
	}
	if !bf.IsInt() {
		return Value[T]{}, fmt.Errorf("%w: %s is not a whole number", ErrRange, bf.Text('g', -1))
	}
	// Out of range input is treated as unspecified rather than wrapped.
	if bf.Cmp(c.min) < 0 || bf.Cmp(c.max) > 0 {
		return Value[T]{}, nil
	}

	var raw T
	if c.min.Sign() < 0 {
		i, _ := bf.Int64()
		raw = T(i)
	} else {
		u, _ := bf.Uint64()
		raw = T(u)
	}
	return c.Wrap(raw), nil
}

// ErrRange marks numbers that fail the domain checks of a width.
var ErrRange = errors.New("out of range")
