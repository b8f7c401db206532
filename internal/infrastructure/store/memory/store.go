// Package memory provides the in-process implementation of the record
// store. A store instance owns all records and many-to-many links for one
// schema registry.
package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/ports"
)

// Store keeps records and links in memory behind a single writer lock.
// Mutations run against a staged copy of the state which is swapped in
// atomically on success, so readers never observe a half-applied cascade,
// fixture load or migration step.
type Store struct {
	registry *entities.Registry
	log      *zap.SugaredLogger

	// writeMu serializes Apply calls end to end; mu only guards the
	// state pointer so readers stay cheap.
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *state
}

// state is the immutable-once-published store content.
type state struct {
	tables map[string]*table
	links  map[string][]entities.Link // by qualified relationship name
}

// table holds one entity's records in insertion order.
type table struct {
	byID  map[string]*entities.Record
	order []string
}

// New creates an empty store for the given registry.
func New(registry *entities.Registry, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{
		registry: registry,
		log:      log,
		state:    newState(),
	}
}

func newState() *state {
	return &state{
		tables: make(map[string]*table),
		links:  make(map[string][]entities.Link),
	}
}

// Registry returns the schema registry this store serves.
func (s *Store) Registry() *entities.Registry { return s.registry }

// Get implements ports.Reader.
func (s *Store) Get(_ context.Context, entity, id string) (*entities.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.get(entity, id), nil
}

// List implements ports.Reader.
func (s *Store) List(_ context.Context, entity string) ([]*entities.Record, error) {
	if _, err := s.registry.Get(entity); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.list(entity), nil
}

// FindByFields implements ports.Reader.
func (s *Store) FindByFields(_ context.Context, entity string, match map[string]any) (*entities.Record, error) {
	if _, err := s.registry.Get(entity); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.findByFields(entity, match), nil
}

// Links implements ports.Reader.
func (s *Store) Links(_ context.Context, rel string) ([]entities.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Link(nil), s.state.links[rel]...), nil
}

// LinksFrom implements ports.Reader.
func (s *Store) LinksFrom(_ context.Context, rel, leftID string) ([]entities.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.Link
	for _, l := range s.state.links[rel] {
		if l.LeftID == leftID {
			out = append(out, l)
		}
	}
	return out, nil
}

// Apply implements ports.Store. The closure runs against a private copy of
// the state; the copy replaces the live state only when the closure
// returns nil. Writers are serialized, readers keep seeing the previous
// state until the swap.
func (s *Store) Apply(_ context.Context, fn func(tx ports.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	staged := s.state.clone()
	s.mu.RUnlock()

	tx := &transaction{registry: s.registry, state: staged}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = staged
	s.mu.Unlock()
	return nil
}

// transaction is the staged view handed to Apply closures.
type transaction struct {
	registry *entities.Registry
	state    *state
}

var _ ports.Tx = (*transaction)(nil)

func (t *transaction) Get(_ context.Context, entity, id string) (*entities.Record, error) {
	return t.state.get(entity, id), nil
}

func (t *transaction) List(_ context.Context, entity string) ([]*entities.Record, error) {
	if _, err := t.registry.Get(entity); err != nil {
		return nil, err
	}
	return t.state.list(entity), nil
}

func (t *transaction) FindByFields(_ context.Context, entity string, match map[string]any) (*entities.Record, error) {
	if _, err := t.registry.Get(entity); err != nil {
		return nil, err
	}
	return t.state.findByFields(entity, match), nil
}

func (t *transaction) Links(_ context.Context, rel string) ([]entities.Link, error) {
	return append([]entities.Link(nil), t.state.links[rel]...), nil
}

func (t *transaction) LinksFrom(_ context.Context, rel, leftID string) ([]entities.Link, error) {
	var out []entities.Link
	for _, l := range t.state.links[rel] {
		if l.LeftID == leftID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *transaction) Insert(_ context.Context, rec *entities.Record) error {
	def, err := t.registry.Get(rec.Entity)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		return &entities.ValidationError{Entity: rec.Entity, Field: "id", Reason: "identity must be set before insert"}
	}

	tbl := t.state.table(rec.Entity)
	if _, exists := tbl.byID[rec.ID]; exists {
		return &entities.ValidationError{Entity: rec.Entity, Field: "id", Reason: fmt.Sprintf("identity %s already exists", rec.ID)}
	}

	if err := t.checkUnique(def, rec, ""); err != nil {
		return err
	}

	tbl.byID[rec.ID] = rec.Clone()
	tbl.order = append(tbl.order, rec.ID)
	return nil
}

func (t *transaction) Update(_ context.Context, rec *entities.Record) error {
	def, err := t.registry.Get(rec.Entity)
	if err != nil {
		return err
	}
	tbl := t.state.table(rec.Entity)
	if _, exists := tbl.byID[rec.ID]; !exists {
		return fmt.Errorf("record not found: %s %s", rec.Entity, rec.ID)
	}
	if err := t.checkUnique(def, rec, rec.ID); err != nil {
		return err
	}
	tbl.byID[rec.ID] = rec.Clone()
	return nil
}

func (t *transaction) Delete(_ context.Context, entity, id string) error {
	if _, err := t.registry.Get(entity); err != nil {
		return err
	}
	tbl := t.state.table(entity)
	if _, exists := tbl.byID[id]; !exists {
		return fmt.Errorf("record not found: %s %s", entity, id)
	}
	delete(tbl.byID, id)
	for i, existing := range tbl.order {
		if existing == id {
			tbl.order = append(tbl.order[:i], tbl.order[i+1:]...)
			break
		}
	}
	return nil
}

func (t *transaction) AddLink(_ context.Context, link entities.Link) error {
	rel, err := t.lookupRel(link.Rel)
	if err != nil {
		return err
	}
	if rel.PairsUnique() {
		for _, existing := range t.state.links[link.Rel] {
			if existing.LeftID == link.LeftID && existing.RightID == link.RightID {
				return &entities.DuplicateRelationshipError{Rel: link.Rel, LeftID: link.LeftID, RightID: link.RightID}
			}
		}
	}
	t.state.links[link.Rel] = append(t.state.links[link.Rel], link)
	return nil
}

func (t *transaction) DeleteLinksTouching(_ context.Context, entity, id string) ([]entities.Link, error) {
	var removed []entities.Link
	for _, def := range t.registry.Entities() {
		for _, rel := range t.registry.Relationships(def.Name) {
			if rel.Kind != entities.ManyToMany {
				continue
			}
			if rel.Source != entity && rel.Target != entity && rel.Through != entity {
				continue
			}
			keep := func(l entities.Link) bool {
				if rel.Source == entity && l.LeftID == id {
					return false
				}
				if rel.Target == entity && l.RightID == id {
					return false
				}
				if rel.Through == entity && l.ThroughID == id {
					return false
				}
				return true
			}
			t.filterLinks(rel.Qualified(), keep, &removed)
		}
	}
	return removed, nil
}

// filterLinks keeps links satisfying keep; the rest land in removed.
func (t *transaction) filterLinks(rel string, keep func(entities.Link) bool, removed *[]entities.Link) {
	existing := t.state.links[rel]
	kept := existing[:0:0]
	for _, l := range existing {
		if keep(l) {
			kept = append(kept, l)
		} else {
			*removed = append(*removed, l)
		}
	}
	t.state.links[rel] = kept
}

// lookupRel resolves a qualified relationship name ("pizza.toppings").
func (t *transaction) lookupRel(qualified string) (*entities.RelationshipDef, error) {
	rel, ok := t.registry.RelationshipByQualified(qualified)
	if !ok {
		return nil, fmt.Errorf("unknown relationship %q", qualified)
	}
	return rel, nil
}

// checkUnique scans for unique-field collisions, skipping selfID.
func (t *transaction) checkUnique(def *entities.EntityDef, rec *entities.Record, selfID string) error {
	tbl := t.state.table(rec.Entity)
	for _, f := range def.Fields {
		if !f.Unique {
			continue
		}
		value := rec.Get(f.Name)
		if value == nil {
			continue
		}
		for _, id := range tbl.order {
			if id == selfID {
				continue
			}
			if entities.ValueEqual(tbl.byID[id].Get(f.Name), value) {
				return &entities.ValidationError{
					Entity: rec.Entity,
					Field:  f.Name,
					Reason: fmt.Sprintf("value %v violates unique constraint", value),
				}
			}
		}
	}
	return nil
}

// state helpers

func (st *state) table(entity string) *table {
	tbl, ok := st.tables[entity]
	if !ok {
		tbl = &table{byID: make(map[string]*entities.Record)}
		st.tables[entity] = tbl
	}
	return tbl
}

func (st *state) get(entity, id string) *entities.Record {
	tbl, ok := st.tables[entity]
	if !ok {
		return nil
	}
	return tbl.byID[id].Clone()
}

func (st *state) list(entity string) []*entities.Record {
	tbl, ok := st.tables[entity]
	if !ok {
		return nil
	}
	out := make([]*entities.Record, 0, len(tbl.order))
	for _, id := range tbl.order {
		out = append(out, tbl.byID[id].Clone())
	}
	return out
}

func (st *state) findByFields(entity string, match map[string]any) *entities.Record {
	tbl, ok := st.tables[entity]
	if !ok {
		return nil
	}
	for _, id := range tbl.order {
		rec := tbl.byID[id]
		found := true
		for field, want := range match {
			if !entities.ValueEqual(rec.Get(field), want) {
				found = false
				break
			}
		}
		if found {
			return rec.Clone()
		}
	}
	return nil
}

func (st *state) clone() *state {
	c := newState()
	for name, tbl := range st.tables {
		copied := &table{
			byID:  make(map[string]*entities.Record, len(tbl.byID)),
			order: append([]string(nil), tbl.order...),
		}
		for id, rec := range tbl.byID {
			copied.byID[id] = rec.Clone()
		}
		c.tables[name] = copied
	}
	for rel, links := range st.links {
		c.links[rel] = append([]entities.Link(nil), links...)
	}
	return c
}
