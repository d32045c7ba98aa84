// Package catalog holds the live records references resolve against.
package catalog

import (
	"strings"
	"sync"

	"github.com/vk/slurmcodec/internal/model"
)

// Set is an immutable snapshot of the catalogs. Callers build one and hand it
// to every parser.Context that needs to resolve references.
type Set struct {
	QOS    []model.QOS
	TRES   []model.TRES
	Assocs []model.Assoc
}

// Find returns the first item match accepts.
func Find[T any](items []T, match func(*T) bool) (*T, bool) {
	for i := range items {
		if match(&items[i]) {
			return &items[i], true
		}
	}
	return nil, false
}

// QOSByID finds a QOS by id.
func (s *Set) QOSByID(id uint32) (*model.QOS, bool) {
	return Find(s.QOS, func(q *model.QOS) bool { return q.ID == id })
}

// QOSByName finds a QOS by name, ignoring case.
func (s *Set) QOSByName(name string) (*model.QOS, bool) {
	return Find(s.QOS, func(q *model.QOS) bool { return strings.EqualFold(q.Name, name) })
}

// TRESByID finds a TRES by id.
func (s *Set) TRESByID(id uint32) (*model.TRES, bool) {
	return Find(s.TRES, func(t *model.TRES) bool { return t.ID == id })
}

// TRESByIdent finds a TRES by "type" or "type/name", ignoring case.
func (s *Set) TRESByIdent(ident string) (*model.TRES, bool) {
	typ, name := model.SplitTRESIdent(ident)
	return Find(s.TRES, func(t *model.TRES) bool {
		return strings.EqualFold(t.Type, typ) && strings.EqualFold(t.Name, name)
	})
}

// AssocByID finds an association by id.
func (s *Set) AssocByID(id uint32) (*model.Assoc, bool) {
	return Find(s.Assocs, func(a *model.Assoc) bool { return a.ID == id })
}

// AssocByKey finds an association by its composite key.
func (s *Set) AssocByKey(key model.AssocShort) (*model.Assoc, bool) {
	return Find(s.Assocs, key.Matches)
}

// Store guards the current Set for readers that outlive a reload.
type Store struct {
	mu  sync.RWMutex
	set *Set
}

// NewStore returns a Store holding set.
func NewStore(set *Set) *Store {
	return &Store{set: set}
}

// Snapshot returns the current Set. The Set must not be modified.
func (s *Store) Snapshot() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// Replace swaps in a new Set and returns the old one.
func (s *Store) Replace(set *Set) *Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.set
	s.set = set
	return old
}
