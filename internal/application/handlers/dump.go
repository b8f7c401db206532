package handlers

import (
	"context"
	"io"

	"github.com/strata-db/strata/internal/domain/services"
)

// DumpHandler handles exporting an entity's records.
type DumpHandler struct {
	service *services.FixtureService
}

// NewDumpHandler creates a new dump handler.
func NewDumpHandler(service *services.FixtureService) *DumpHandler {
	return &DumpHandler{
		service: service,
	}
}

// DumpOptions controls dump output.
type DumpOptions struct {
	Format  string   // "json", "yaml" or "csv"; empty means json
	OrderBy []string // Sort fields for deterministic output
}

// Handle writes every record of the entity to w and returns how many
// were written. An output path is handled by HandleFile instead.
func (h *DumpHandler) Handle(ctx context.Context, w io.Writer, entity string, opts DumpOptions) (int, error) {
	return h.service.Dump(ctx, w, entity, services.DumpOptions{
		Format:  opts.Format,
		OrderBy: opts.OrderBy,
	})
}

// HandleFile dumps an entity to a file, inferring the format from the
// file's extension.
func (h *DumpHandler) HandleFile(ctx context.Context, path, entity string, orderBy []string) (int, error) {
	return h.service.DumpFile(ctx, path, entity, orderBy)
}
