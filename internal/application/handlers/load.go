package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/strata-db/strata/internal/domain/services"
	"github.com/strata-db/strata/internal/infrastructure/parsers"
)

// LoadHandler handles loading fixture files into the store.
type LoadHandler struct {
	service *services.FixtureService
}

// NewLoadHandler creates a new load handler.
func NewLoadHandler(service *services.FixtureService) *LoadHandler {
	return &LoadHandler{
		service: service,
	}
}

// LoadOptions controls fixture loading behavior.
type LoadOptions struct {
	Format     string   // "json", "yaml", "csv", or "auto"
	NaturalKey []string // Fields identifying records without an id
	Update     bool     // Overwrite matched records instead of skipping
	DryRun     bool     // Validate without saving
}

// LoadResult contains the result of a fixture load.
type LoadResult struct {
	Created int
	Updated int
	Skipped int
	Errors  []string
}

// Handle loads records from a fixture file.
func (h *LoadHandler) Handle(ctx context.Context, filePath string, opts LoadOptions) (*LoadResult, error) {
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}
	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	serviceResult, err := h.service.Load(ctx, file, parser, services.LoadOptions{
		NaturalKey: opts.NaturalKey,
		Update:     opts.Update,
		DryRun:     opts.DryRun,
	})
	if err != nil {
		return nil, err
	}

	return &LoadResult{
		Created: serviceResult.Created,
		Updated: serviceResult.Updated,
		Skipped: serviceResult.Skipped,
		Errors:  serviceResult.Errors,
	}, nil
}
