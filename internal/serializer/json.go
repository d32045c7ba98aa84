package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// JSON converts JSON documents. Objects decode to cty objects and arrays to
// tuples, so a document keeps its exact shape.
type JSON struct {
	// Indent pretty prints Encode output when set.
	Indent string
}

// Mime implements Serializer.
func (JSON) Mime() string { return MimeJSON }

// Decode implements Serializer. An empty document decodes to null.
func (JSON) Decode(data []byte) (cty.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read JSON document: %w", err)
	}
	v, err := ctyjson.Unmarshal(data, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to decode JSON document: %w", err)
	}
	return v, nil
}

// Encode implements Serializer.
func (j JSON) Encode(v cty.Value) ([]byte, error) {
	if v.Type() == cty.NilType {
		return nil, fmt.Errorf("cannot encode an empty value")
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("cannot encode a value that is not wholly known")
	}
	out, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON document: %w", err)
	}
	if j.Indent == "" {
		return out, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, out, "", j.Indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
