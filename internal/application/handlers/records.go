package handlers

import (
	"context"
	"strings"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/query"
	"github.com/strata-db/strata/internal/domain/services"
)

// RecordsHandler handles listing, filtering and deleting records.
type RecordsHandler struct {
	queries *services.QueryService
	rels    *services.RelationshipService
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(queries *services.QueryService, rels *services.RelationshipService) *RecordsHandler {
	return &RecordsHandler{
		queries: queries,
		rels:    rels,
	}
}

// ListOptions controls filtering and ordering of a record listing.
type ListOptions struct {
	Where string // Filter expression; empty matches everything
	Order string // Comma-separated order keys, "-" prefix for descending
}

// List returns the entity's records matching the options.
func (h *RecordsHandler) List(ctx context.Context, entity string, opts ListOptions) ([]*entities.Record, error) {
	var pred query.Predicate
	if opts.Where != "" {
		parsed, err := query.Parse(opts.Where)
		if err != nil {
			return nil, err
		}
		pred = parsed
	}

	var keys []entities.OrderKey
	if opts.Order != "" {
		keys = entities.ParseOrderKeys(strings.Split(opts.Order, ","))
	}

	return h.queries.Select(ctx, entity, pred, keys)
}

// Delete removes a record and everything that cascades from it, and
// returns how many records were removed.
func (h *RecordsHandler) Delete(ctx context.Context, entity, id string) (int, error) {
	return h.rels.CascadeDelete(ctx, entity, id)
}

// Related returns the records reachable from a record through one of
// its entity's relationships.
func (h *RecordsHandler) Related(ctx context.Context, entity, id, relName string) ([]*entities.Record, error) {
	rec, err := h.queries.Get(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	return h.rels.ResolveForward(ctx, rec, relName)
}
