package handlers

import (
	"context"

	"github.com/strata-db/strata/internal/domain/services"
)

// MigrateHandler handles applying, reverting and inspecting migration
// steps.
type MigrateHandler struct {
	service *services.MigrationService
}

// NewMigrateHandler creates a new migrate handler.
func NewMigrateHandler(service *services.MigrationService) *MigrateHandler {
	return &MigrateHandler{
		service: service,
	}
}

// MigrateOptions controls a migration run.
type MigrateOptions struct {
	To   string // Stop after this step; empty runs everything
	Fake bool   // Mark as applied without running
}

// Apply runs pending steps and returns the names of those applied.
func (h *MigrateHandler) Apply(ctx context.Context, opts MigrateOptions) ([]string, error) {
	return h.service.Apply(ctx, services.ApplyOptions{To: opts.To, Fake: opts.Fake})
}

// Plan returns the names of every step in dependency order.
func (h *MigrateHandler) Plan() ([]string, error) {
	steps, err := h.service.Plan()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(steps))
	for _, step := range steps {
		names = append(names, step.Name)
	}
	return names, nil
}

// Rollback reverts applied steps until only the named step and its
// predecessors remain. An empty name reverts everything.
func (h *MigrateHandler) Rollback(ctx context.Context, to string) ([]string, error) {
	return h.service.RevertTo(ctx, to)
}

// Status returns every step with its applied state.
func (h *MigrateHandler) Status(ctx context.Context) ([]services.StepStatus, error) {
	return h.service.Status(ctx)
}
