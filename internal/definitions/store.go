// Package definitions holds the immutable in-memory catalog of API and
// Origin entries, and the loader that builds one from the JSON files under
// resources/definitions/. Once built, a Store is never mutated -- it is
// shared by reference (a plain pointer) with the config manager, matching
// the teacher's "build once, clone the handle into each task" pattern for
// read-mostly shared state (no lock needed because the structure is frozen).
package definitions

import gateman "github.com/sschakraborty/gateman-go/internal"

// Store is the read-only catalog of API and Origin definitions, keyed by
// id. APIs() preserves insertion order, which is what makes the config
// manager's "last survivor wins" tie-break deterministic for a given load.
// Construct with Load; the zero value is empty but valid.
type Store struct {
	apiOrder []string
	apis     map[string]gateman.APIDefinition
	origins  map[string]gateman.Origin
}

// NewStore returns an empty Store. Used by tests and by Load.
func NewStore() *Store {
	return &Store{
		apis:    make(map[string]gateman.APIDefinition),
		origins: make(map[string]gateman.Origin),
	}
}

// AddAPI inserts or replaces an APIDefinition. Intended for Load and tests;
// a Store handed to the config manager is never mutated again.
func (s *Store) AddAPI(def gateman.APIDefinition) {
	if _, exists := s.apis[def.APIID]; !exists {
		s.apiOrder = append(s.apiOrder, def.APIID)
	}
	s.apis[def.APIID] = def
}

// AddOrigin inserts or replaces an Origin. Intended for Load and tests.
func (s *Store) AddOrigin(o gateman.Origin) {
	s.origins[o.OriginID] = o
}

// APIs returns all APIDefinitions in insertion order.
func (s *Store) APIs() []gateman.APIDefinition {
	out := make([]gateman.APIDefinition, 0, len(s.apiOrder))
	for _, id := range s.apiOrder {
		out = append(out, s.apis[id])
	}
	return out
}

// Origins returns all Origins in unspecified order.
func (s *Store) Origins() []gateman.Origin {
	out := make([]gateman.Origin, 0, len(s.origins))
	for _, o := range s.origins {
		out = append(out, o)
	}
	return out
}

// OriginByID returns the Origin for id, or false if no such Origin exists.
func (s *Store) OriginByID(id string) (gateman.Origin, bool) {
	o, ok := s.origins[id]
	return o, ok
}
