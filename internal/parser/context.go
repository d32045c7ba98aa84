package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/slurmcodec/internal/catalog"
	"github.com/vk/slurmcodec/internal/ctxlog"
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/sentinel"
	"github.com/zclconf/go-cty/cty"
)

// Observer is notified once per top-level Parse or Dump call.
type Observer interface {
	ObserveCall(op string, typ TypeID, err error)
	ObserveDiagnostic(op string, d diag.Diagnostic)
}

// Context is the state of a single Parse or Dump call and everything below
// it. It must not be shared between concurrent calls.
type Context struct {
	ctx      context.Context
	lookup   Lookup
	catalogs *catalog.Set
	mode     sentinel.Mode
	version  Version
	prefix   cty.Path
	observer Observer

	diags   diag.Diagnostics
	depth   int
	forward bool
}

// ContextOption customizes a Context.
type ContextOption func(*Context)

// WithCatalogs sets the catalogs references resolve against.
func WithCatalogs(set *catalog.Set) ContextOption {
	return func(c *Context) { c.catalogs = set }
}

// WithMode selects compact or verbose dumps.
func WithMode(m sentinel.Mode) ContextOption {
	return func(c *Context) { c.mode = m }
}

// WithVersion sets the API version the client speaks.
func WithVersion(v Version) ContextOption {
	return func(c *Context) { c.version = v }
}

// WithPathPrefix prepends path to every reported path.
func WithPathPrefix(path cty.Path) ContextOption {
	return func(c *Context) { c.prefix = path }
}

// WithObserver attaches a call observer such as metrics.
func WithObserver(o Observer) ContextOption {
	return func(c *Context) { c.observer = o }
}

// NewContext creates the per-call state. ctx must carry a logger (see ctxlog).
func NewContext(ctx context.Context, lookup Lookup, opts ...ContextOption) *Context {
	c := &Context{ctx: ctx, lookup: lookup}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Context returns the context.Context of the call.
func (c *Context) Context() context.Context { return c.ctx }

// Logger returns the call's logger.
func (c *Context) Logger() *slog.Logger { return ctxlog.FromContext(c.ctx) }

// Catalogs returns the catalogs of the call, or nil when none were given.
func (c *Context) Catalogs() *catalog.Set { return c.catalogs }

// Mode returns the dump mode.
func (c *Context) Mode() sentinel.Mode { return c.mode }

// Version returns the API version of the call.
func (c *Context) Version() Version { return c.version }

// Forward reports whether the value being converted sits below a Forward field.
func (c *Context) Forward() bool { return c.forward }

// Diagnostics returns the records of the call so far.
func (c *Context) Diagnostics() diag.Diagnostics { return c.diags }

// Path returns path with the context prefix prepended.
func (c *Context) Path(path cty.Path) cty.Path {
	if len(c.prefix) == 0 {
		return path
	}
	out := make(cty.Path, 0, len(c.prefix)+len(path))
	out = append(out, c.prefix...)
	return append(out, path...)
}

// Warn records a warning and lets the call continue.
func (c *Context) Warn(code diag.Code, path cty.Path, format string, args ...any) {
	d := diag.Diagnostic{
		Severity: diag.SeverityWarning,
		Code:     code,
		Path:     c.Path(path),
		Message:  fmt.Sprintf(format, args...),
	}
	c.diags = append(c.diags, d)
	c.Logger().Debug("Conversion warning recorded.", "code", code, "path", diag.FormatPath(d.Path), "message", d.Message)
}

// Resolve returns the registered descriptor for id.
func (c *Context) Resolve(id TypeID, path cty.Path) (*Parser, error) {
	if c.lookup == nil {
		return nil, diag.Errorf(diag.CodeSchema, path, "no registry to resolve %s", id)
	}
	p, ok := c.lookup.Lookup(id)
	if !ok {
		return nil, diag.Errorf(diag.CodeSchema, path, "type %s is not registered", id)
	}
	return p, nil
}

// rollback drops the records added after mark, used when an overload attempt
// is abandoned.
func (c *Context) rollback(mark int) {
	c.diags = c.diags[:mark]
}

func storageOf[T any](id TypeID, ptr any, path cty.Path) (*T, error) {
	t, ok := ptr.(*T)
	if !ok || t == nil {
		return nil, diag.Errorf(diag.CodeInvalidType, path, "%s expects storage %T, got %T", id, t, ptr)
	}
	return t, nil
}
