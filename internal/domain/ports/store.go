// Package ports defines the interfaces between domain services and
// infrastructure implementations.
package ports

import (
	"context"

	"github.com/strata-db/strata/internal/domain/entities"
)

// Reader provides read access to the record store. Returned records are
// defensive copies; mutating them does not touch stored state. Lookups of
// absent records return (nil, nil).
type Reader interface {
	// Get returns the record with the given identity, or nil.
	Get(ctx context.Context, entity, id string) (*entities.Record, error)
	// List returns all records of an entity in insertion order.
	List(ctx context.Context, entity string) ([]*entities.Record, error)
	// FindByFields returns the first record whose fields match every entry
	// of match, or nil. Used for natural-key and uniqueness probes.
	FindByFields(ctx context.Context, entity string, match map[string]any) (*entities.Record, error)
	// Links returns all link rows of a many-to-many relationship in
	// insertion order. rel is the qualified relationship name.
	Links(ctx context.Context, rel string) ([]entities.Link, error)
	// LinksFrom returns the links of rel whose left side is leftID.
	LinksFrom(ctx context.Context, rel, leftID string) ([]entities.Link, error)
}

// Writer provides mutation access inside a transaction.
type Writer interface {
	// Insert adds a record. The caller assigns the identity. Fails with a
	// ValidationError on duplicate identity or unique-field violation.
	Insert(ctx context.Context, rec *entities.Record) error
	// Update replaces the values of an existing record.
	Update(ctx context.Context, rec *entities.Record) error
	// Delete removes a record. Links are not touched; callers that need
	// referential cleanup use the relationship service's cascade.
	Delete(ctx context.Context, entity, id string) error
	// AddLink inserts a many-to-many link row, enforcing pair uniqueness
	// per the relationship's declaration.
	AddLink(ctx context.Context, link entities.Link) error
	// DeleteLinksTouching removes every link that references the given
	// record as its left side, right side or through record. Returns the
	// removed links.
	DeleteLinksTouching(ctx context.Context, entity, id string) ([]entities.Link, error)
}

// Tx is the view a mutating closure gets: reads observe staged writes.
type Tx interface {
	Reader
	Writer
}

// Store is a transactional record store. All mutation goes through Apply:
// the closure runs against a staged copy of the state which is swapped in
// atomically when the closure returns nil, so concurrent readers never
// observe a partially applied cascade, fixture load or migration step.
type Store interface {
	Reader
	Apply(ctx context.Context, fn func(tx Tx) error) error
}
