package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/slurmcodec/internal/parser"
)

// Module is implemented by packages that contribute descriptors.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered descriptors by type id.
type Registry struct {
	parsers map[parser.TypeID]*parser.Parser
}

// New creates a Registry and lets each module register into it.
func New(modules ...Module) *Registry {
	r := &Registry{parsers: make(map[parser.TypeID]*parser.Parser)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds descriptors. A nil descriptor or a duplicate type id panics.
func (r *Registry) Register(parsers ...*parser.Parser) {
	for _, p := range parsers {
		if p == nil {
			panic("registry: nil parser descriptor")
		}
		if _, exists := r.parsers[p.Type]; exists {
			panic(fmt.Sprintf("parser with type '%s' already registered", p.Type))
		}
		slog.Debug("Registering parser.", "type", p.Type)
		r.parsers[p.Type] = p
	}
}

// Lookup returns the descriptor registered for id.
func (r *Registry) Lookup(id parser.TypeID) (*parser.Parser, bool) {
	p, ok := r.parsers[id]
	return p, ok
}

// All returns every descriptor sorted by type id.
func (r *Registry) All() []*parser.Parser {
	out := make([]*parser.Parser, 0, len(r.parsers))
	for _, p := range r.parsers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int { return len(r.parsers) }
