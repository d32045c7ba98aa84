package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/slurmcodec/internal/catalog"
	"github.com/vk/slurmcodec/internal/ctxlog"
	"github.com/vk/slurmcodec/internal/fsutil"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/vk/slurmcodec/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Observer is told about every successful load, e.g. for metrics.
type Observer interface {
	ObserveCatalogs(counts map[string]int, at time.Time)
}

// Loader reads catalog files written in HCL and converts their blocks with
// the registered record descriptors.
type Loader struct {
	lookup   parser.Lookup
	observer Observer
	now      func() time.Time
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithObserver reports successful loads to o.
func WithObserver(o Observer) LoaderOption {
	return func(l *Loader) { l.observer = o }
}

// NewLoader creates a loader converting blocks with the descriptors in lookup.
func NewLoader(lookup parser.Lookup, opts ...LoaderOption) *Loader {
	l := &Loader{lookup: lookup, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	TRES   []*tresBlock  `hcl:"tres,block"`
	QOS    []*qosBlock   `hcl:"qos,block"`
	Assocs []*assocBlock `hcl:"assoc,block"`
	Remain hcl.Body      `hcl:",remain"`
}

// tresBlock is labeled with "type" or "type/name", e.g. "gres/gpu".
type tresBlock struct {
	Ident string   `hcl:"ident,label"`
	Body  hcl.Body `hcl:",remain"`
}

type qosBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type assocBlock struct {
	Cluster string   `hcl:"cluster,label"`
	Account string   `hcl:"account,label"`
	User    string   `hcl:"user,label"`
	Body    hcl.Body `hcl:",remain"`
}

// block is one decoded catalog block ready for conversion.
type block struct {
	kind  string
	label string
	attrs map[string]cty.Value
	rng   hcl.Range
}

// Load reads every .hcl file under paths and returns the catalogs they
// declare. TRES blocks are converted first, then QOS, then associations, so
// each may refer to the kinds before it regardless of file order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*catalog.Set, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL catalog loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	p := hclparse.NewParser()
	var tres, qos, assocs []block
	for _, file := range files {
		f, diags := p.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		attrs, diags := root.Remain.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		for name, attr := range attrs {
			return nil, fmt.Errorf("%s: unexpected top-level attribute %q", attr.Range, name)
		}

		for _, b := range root.TRES {
			attrs, err := bodyAttributes(b.Body)
			if err != nil {
				return nil, err
			}
			typ, name := model.SplitTRESIdent(b.Ident)
			attrs["type"] = cty.StringVal(typ)
			if name != "" {
				attrs["name"] = cty.StringVal(name)
			}
			tres = append(tres, block{kind: "tres", label: b.Ident, attrs: attrs, rng: b.Body.MissingItemRange()})
		}
		for _, b := range root.QOS {
			attrs, err := bodyAttributes(b.Body)
			if err != nil {
				return nil, err
			}
			attrs["name"] = cty.StringVal(b.Name)
			qos = append(qos, block{kind: "qos", label: b.Name, attrs: attrs, rng: b.Body.MissingItemRange()})
		}
		for _, b := range root.Assocs {
			attrs, err := bodyAttributes(b.Body)
			if err != nil {
				return nil, err
			}
			attrs["cluster"] = cty.StringVal(b.Cluster)
			attrs["account"] = cty.StringVal(b.Account)
			attrs["user"] = cty.StringVal(b.User)
			label := b.Cluster + "/" + b.Account + "/" + b.User
			assocs = append(assocs, block{kind: "assoc", label: label, attrs: attrs, rng: b.Body.MissingItemRange()})
		}
	}

	set := &catalog.Set{}
	if set.TRES, err = convertAll[model.TRES](ctx, l, set, schema.TypeTRES, tres); err != nil {
		return nil, err
	}
	assignIDs(set.TRES, func(t *model.TRES) *uint32 { return &t.ID })
	if set.QOS, err = convertAll[model.QOS](ctx, l, set, schema.TypeQOS, qos); err != nil {
		return nil, err
	}
	assignIDs(set.QOS, func(q *model.QOS) *uint32 { return &q.ID })
	if set.Assocs, err = convertAll[model.Assoc](ctx, l, set, schema.TypeAssoc, assocs); err != nil {
		return nil, err
	}
	assignIDs(set.Assocs, func(a *model.Assoc) *uint32 { return &a.ID })
	if err := check(set, tres, qos, assocs); err != nil {
		return nil, err
	}

	counts := map[string]int{"tres": len(set.TRES), "qos": len(set.QOS), "assoc": len(set.Assocs)}
	if l.observer != nil {
		l.observer.ObserveCatalogs(counts, l.now())
	}
	logger.Debug("HCL catalog loading complete.", "tres", counts["tres"], "qos", counts["qos"], "assoc", counts["assoc"])
	return set, nil
}

// convertAll parses every block of one kind into a record the descriptor id
// allocates. set holds the kinds converted before, and the forward references
// inside QOS blocks may name any QOS of the same load.
func convertAll[R any](ctx context.Context, l *Loader, set *catalog.Set, id parser.TypeID, blocks []block) ([]R, error) {
	logger := ctxlog.FromContext(ctx)
	out := make([]R, 0, len(blocks))
	for _, b := range blocks {
		c := parser.NewContext(ctx, l.lookup,
			parser.WithCatalogs(set),
			parser.WithPathPrefix(cty.GetAttrPath(b.kind).Index(cty.StringVal(b.label))),
		)
		p, err := c.Resolve(id, nil)
		if err != nil {
			return nil, err
		}
		rec, ok := p.New().(*R)
		if !ok {
			return nil, fmt.Errorf("type %s does not convert %T records", id, *new(R))
		}
		err = parser.Parse(c, p, objectOf(b.attrs), rec, nil)
		for _, d := range c.Diagnostics().Warnings() {
			logger.Warn("Catalog block converted with a warning.", "block", b.rng.String(), "diagnostic", d.String())
		}
		if err != nil {
			return nil, blockError(b, err)
		}
		out = append(out, *rec)
	}
	return out, nil
}

// check enforces what no single block can: unique ids and keys, and QOS
// preemption lists naming QOS that exist.
func check(set *catalog.Set, tres, qos, assocs []block) error {
	var diags hcl.Diagnostics
	dup := func(b block, what string) {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Duplicate catalog entry",
			Detail:   fmt.Sprintf("%s %q: %s", b.kind, b.label, what),
			Subject:  b.rng.Ptr(),
		})
	}

	tresIDs := map[uint32]bool{}
	tresIdents := map[string]bool{}
	for i, t := range set.TRES {
		if tresIDs[t.ID] {
			dup(tres[i], fmt.Sprintf("id %d is already used", t.ID))
		}
		if tresIdents[t.Ident()] {
			dup(tres[i], "declared more than once")
		}
		tresIDs[t.ID], tresIdents[t.Ident()] = true, true
	}

	qosIDs := map[uint32]bool{}
	for i, q := range set.QOS {
		if qosIDs[q.ID] {
			dup(qos[i], fmt.Sprintf("id %d is already used", q.ID))
		}
		qosIDs[q.ID] = true
		if first, ok := set.QOSByName(q.Name); ok && first != &set.QOS[i] {
			dup(qos[i], "declared more than once")
		}
		for _, name := range q.Preempt.List {
			if _, ok := set.QOSByName(name); !ok {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unknown QOS",
					Detail:   fmt.Sprintf("qos %q may preempt %q, which is not declared", q.Name, name),
					Subject:  qos[i].rng.Ptr(),
				})
			}
		}
	}

	assocIDs := map[uint32]bool{}
	for i, a := range set.Assocs {
		if assocIDs[a.ID] {
			dup(assocs[i], fmt.Sprintf("id %d is already used", a.ID))
		}
		assocIDs[a.ID] = true
		if first, ok := set.AssocByKey(a.Short()); ok && first != &set.Assocs[i] {
			dup(assocs[i], "declared more than once")
		}
	}

	if diags.HasErrors() {
		return diags
	}
	return nil
}

// assignIDs numbers records declared without an id after the highest id in
// use, in declaration order.
func assignIDs[R any](records []R, id func(*R) *uint32) {
	var max uint32
	for i := range records {
		if v := *id(&records[i]); v > max {
			max = v
		}
	}
	for i := range records {
		if p := id(&records[i]); *p == 0 {
			max++
			*p = max
		}
	}
}

func blockError(b block, err error) error {
	return fmt.Errorf("%s: invalid %s block %q: %w", b.rng, b.kind, b.label, err)
}
