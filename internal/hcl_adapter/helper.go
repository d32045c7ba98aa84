package hcl_adapter

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/slurmcodec/internal/sentinel"
	"github.com/zclconf/go-cty/cty"
)

// evalContext exposes the names catalog files may use in place of literals.
var evalContext = &hcl.EvalContext{
	Variables: map[string]cty.Value{
		"unlimited": cty.StringVal(sentinel.InfinityString),
	},
}

// bodyAttributes evaluates every attribute of a block body. Nested blocks are
// rejected: records nest through object values, e.g. limits = { ... }.
func bodyAttributes(body hcl.Body) (map[string]cty.Value, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]cty.Value, len(attrs))
	for _, name := range names {
		attr := attrs[name]
		val, diags := attr.Expr.Value(evalContext)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid value for %q: %w", name, diags)
		}
		if !val.IsWhollyKnown() {
			return nil, fmt.Errorf("%s: value for %q is not known", attr.Range, name)
		}
		out[name] = val
	}
	return out, nil
}

// objectOf turns evaluated attributes into the object value a record parses from.
func objectOf(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}
