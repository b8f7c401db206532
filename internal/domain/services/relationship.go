package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/ports"
)

// RelationshipService traverses relationship edges between records and
// enforces their deletion policies.
type RelationshipService struct {
	registry *entities.Registry
	store    ports.Store
	log      *zap.SugaredLogger
}

// NewRelationshipService creates a new RelationshipService.
func NewRelationshipService(registry *entities.Registry, store ports.Store, log *zap.SugaredLogger) *RelationshipService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RelationshipService{registry: registry, store: store, log: log}
}

// ResolveForward returns the records related to rec through the named
// relationship: at most one record for many-to-one and one-to-one, the
// insertion-ordered set for many-to-many.
func (s *RelationshipService) ResolveForward(ctx context.Context, rec *entities.Record, relName string) ([]*entities.Record, error) {
	rel, err := s.registry.Relationship(rec.Entity, relName)
	if err != nil {
		return nil, err
	}

	switch rel.Kind {
	case entities.ManyToOne:
		id, _ := rec.Get(rel.Field).(string)
		if id == "" {
			return nil, nil
		}
		target, err := s.store.Get(ctx, rel.Target, id)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, nil
		}
		return []*entities.Record{target}, nil

	case entities.OneToOne:
		// Extension records share the parent's identity.
		parent, err := s.store.Get(ctx, rel.Target, rec.ID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, nil
		}
		return []*entities.Record{parent}, nil

	case entities.ManyToMany:
		links, err := s.store.LinksFrom(ctx, rel.Qualified(), rec.ID)
		if err != nil {
			return nil, err
		}
		targets := make([]*entities.Record, 0, len(links))
		for _, link := range links {
			target, err := s.store.Get(ctx, rel.Target, link.RightID)
			if err != nil {
				return nil, err
			}
			if target != nil {
				targets = append(targets, target)
			}
		}
		return targets, nil
	}

	return nil, fmt.Errorf("relationship %s has unknown kind %q", rel.Qualified(), rel.Kind)
}

// ResolveReverse returns the records on the other end of a relationship
// declared on source that points at rec: the "many" side of a many-to-one
// edge, the extension record of a one-to-one edge, or the left side of a
// many-to-many edge.
func (s *RelationshipService) ResolveReverse(ctx context.Context, rec *entities.Record, source, relName string) ([]*entities.Record, error) {
	rel, err := s.registry.Relationship(source, relName)
	if err != nil {
		return nil, err
	}
	if rel.Target != rec.Entity {
		return nil, fmt.Errorf("relationship %s targets %s, not %s", rel.Qualified(), rel.Target, rec.Entity)
	}

	switch rel.Kind {
	case entities.ManyToOne:
		all, err := s.store.List(ctx, rel.Source)
		if err != nil {
			return nil, err
		}
		var out []*entities.Record
		for _, candidate := range all {
			if id, _ := candidate.Get(rel.Field).(string); id == rec.ID {
				out = append(out, candidate)
			}
		}
		return out, nil

	case entities.OneToOne:
		child, err := s.store.Get(ctx, rel.Source, rec.ID)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, nil
		}
		return []*entities.Record{child}, nil

	case entities.ManyToMany:
		links, err := s.store.Links(ctx, rel.Qualified())
		if err != nil {
			return nil, err
		}
		var out []*entities.Record
		for _, link := range links {
			if link.RightID != rec.ID {
				continue
			}
			left, err := s.store.Get(ctx, rel.Source, link.LeftID)
			if err != nil {
				return nil, err
			}
			if left != nil {
				out = append(out, left)
			}
		}
		return out, nil
	}

	return nil, fmt.Errorf("relationship %s has unknown kind %q", rel.Qualified(), rel.Kind)
}

// AddManyToMany links two records through a many-to-many relationship.
// For through-mediated relationships the attrs become the join record's
// values and the created join record is returned; plain joins take no
// attrs and return nil. Violating a unique pair constraint fails with
// DuplicateRelationshipError.
func (s *RelationshipService) AddManyToMany(ctx context.Context, source, relName, leftID, rightID string, attrs map[string]any) (*entities.Record, error) {
	rel, err := s.registry.Relationship(source, relName)
	if err != nil {
		return nil, err
	}
	if rel.Kind != entities.ManyToMany {
		return nil, fmt.Errorf("relationship %s is not many-to-many", rel.Qualified())
	}
	if rel.Through == "" && len(attrs) > 0 {
		return nil, fmt.Errorf("relationship %s has no through entity to carry attributes", rel.Qualified())
	}

	var through *entities.Record
	err = s.store.Apply(ctx, func(tx ports.Tx) error {
		left, err := tx.Get(ctx, rel.Source, leftID)
		if err != nil {
			return err
		}
		if left == nil {
			return fmt.Errorf("%s %s not found", rel.Source, leftID)
		}
		right, err := tx.Get(ctx, rel.Target, rightID)
		if err != nil {
			return err
		}
		if right == nil {
			return fmt.Errorf("%s %s not found", rel.Target, rightID)
		}

		link := entities.Link{Rel: rel.Qualified(), LeftID: leftID, RightID: rightID}

		if rel.Through != "" {
			values := make(map[string]any, len(attrs)+2)
			for k, v := range attrs {
				values[k] = v
			}
			values[rel.LeftField] = leftID
			values[rel.RightField] = rightID

			validated, err := s.registry.ValidateRecord(rel.Through, values)
			if err != nil {
				return err
			}
			through = newRecord(s.registry, rel.Through, validated)
			if err := tx.Insert(ctx, through); err != nil {
				return err
			}
			link.ThroughID = through.ID
		}

		return tx.AddLink(ctx, link)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debugw("linked records", "rel", rel.Qualified(), "left", leftID, "right", rightID)
	return through, nil
}

// CascadeDelete removes a record and, transitively, everything that
// depends on it per each relationship's deletion policy. Returns the
// number of records removed. The cascade is atomic: on failure the store
// is unchanged and a CascadeError is returned.
func (s *RelationshipService) CascadeDelete(ctx context.Context, entity, id string) (int, error) {
	removed := 0
	err := s.store.Apply(ctx, func(tx ports.Tx) error {
		rec, err := tx.Get(ctx, entity, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("record not found: %s %s", entity, id)
		}
		return s.cascade(ctx, tx, entity, id, &removed)
	})
	if err != nil {
		return 0, &entities.CascadeError{Entity: entity, ID: id, Err: err}
	}

	s.log.Debugw("cascade delete", "entity", entity, "id", id, "removed", removed)
	return removed, nil
}

// cascade deletes one record after handling all edges pointing at it.
// Records already removed earlier in the walk are skipped silently.
func (s *RelationshipService) cascade(ctx context.Context, tx ports.Tx, entity, id string, removed *int) error {
	rec, err := tx.Get(ctx, entity, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	for _, rel := range s.registry.RelationshipsInto(entity) {
		switch rel.Kind {
		case entities.ManyToOne:
			children, err := tx.List(ctx, rel.Source)
			if err != nil {
				return err
			}
			for _, child := range children {
				childRef, _ := child.Get(rel.Field).(string)
				if childRef != id {
					continue
				}
				switch rel.OnDelete {
				case entities.DeleteCascade:
					if err := s.cascade(ctx, tx, rel.Source, child.ID, removed); err != nil {
						return err
					}
				case entities.DeleteSetNull:
					child.Set(rel.Field, nil)
					if err := tx.Update(ctx, child); err != nil {
						return err
					}
				case entities.DeleteRestrict:
					return fmt.Errorf("%s %s is referenced by %s %s (restrict)", entity, id, rel.Source, child.ID)
				}
			}

		case entities.OneToOne:
			// Extension record shares this identity.
			if err := s.cascade(ctx, tx, rel.Source, id, removed); err != nil {
				return err
			}
		}
	}

	// Drop link rows referencing the record in any role, then cascade
	// into through records orphaned by the removal.
	links, err := tx.DeleteLinksTouching(ctx, entity, id)
	if err != nil {
		return err
	}
	for _, link := range links {
		if link.ThroughID == "" || link.ThroughID == id {
			continue
		}
		rel, ok := s.registry.RelationshipByQualified(link.Rel)
		if !ok {
			continue
		}
		if err := s.cascade(ctx, tx, rel.Through, link.ThroughID, removed); err != nil {
			return err
		}
	}

	if err := tx.Delete(ctx, entity, id); err != nil {
		return err
	}
	*removed++
	return nil
}

// newRecord builds a record with a fresh surrogate identity, stamping
// lifecycle timestamps when the entity declares them.
func newRecord(registry *entities.Registry, entity string, values map[string]any) *entities.Record {
	rec := &entities.Record{
		ID:     uuid.New().String(),
		Entity: entity,
		Values: values,
	}
	if def, err := registry.Get(entity); err == nil && def.Timestamps {
		now := timeNow()
		rec.CreatedAt = now
		rec.UpdatedAt = now
	}
	return rec
}
