package app

import (
	"context"

	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/openapi"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/zclconf/go-cty/cty"
)

// NewCodec returns the state for one conversion: the current catalogs, the
// configured mode and version, and the metrics observer. Later opts win.
func (a *App) NewCodec(ctx context.Context, opts ...parser.ContextOption) *parser.Context {
	base := []parser.ContextOption{
		parser.WithCatalogs(a.catalogs.Snapshot()),
		parser.WithMode(a.config.SentinelMode()),
		parser.WithVersion(a.config.Version()),
		parser.WithObserver(a.metrics),
	}
	return parser.NewContext(ctx, a.registry, append(base, opts...)...)
}

// Parse converts v into a new record of type id. The diagnostics include the
// warnings of a successful call.
func (a *App) Parse(ctx context.Context, id parser.TypeID, v cty.Value) (any, diag.Diagnostics, error) {
	c := a.NewCodec(ctx)
	p, err := c.Resolve(id, nil)
	if err != nil {
		return nil, nil, err
	}
	dst := p.New()
	if err := parser.Parse(c, p, v, dst, nil); err != nil {
		return nil, c.Diagnostics(), err
	}
	return dst, c.Diagnostics(), nil
}

// Dump converts the record src of type id into a value tree.
func (a *App) Dump(ctx context.Context, id parser.TypeID, src any) (cty.Value, diag.Diagnostics, error) {
	c := a.NewCodec(ctx)
	v, err := parser.DumpAs(c, id, src, nil)
	return v, c.Diagnostics(), err
}

// RoundTrip parses v as type id and dumps the record back, showing what the
// controller would store and report for the document.
func (a *App) RoundTrip(ctx context.Context, id parser.TypeID, v cty.Value) (cty.Value, diag.Diagnostics, error) {
	c := a.NewCodec(ctx)
	p, err := c.Resolve(id, nil)
	if err != nil {
		return cty.NilVal, nil, err
	}
	record := p.New()
	if err := parser.Parse(c, p, v, record, nil); err != nil {
		return cty.NilVal, c.Diagnostics(), err
	}
	out, err := parser.Dump(c, p, record, nil)
	return out, c.Diagnostics(), err
}

// OpenAPI renders the schemas of every registered type as an OpenAPI document.
func (a *App) OpenAPI(ctx context.Context, title string) (cty.Value, error) {
	return openapi.New(a.config.Version(), a.config.SentinelMode()).Document(ctx, a.registry, title)
}
