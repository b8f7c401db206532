// Package migrations holds the data migration steps shipped with the
// demo schema.
package migrations

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/ports"
	"github.com/strata-db/strata/internal/domain/services"
)

const defaultCategoryName = "General"

// Demo returns the migration steps for the demo schema.
func Demo() []*services.Step {
	return []*services.Step{
		{
			Name:    "seed_default_category",
			Forward: seedDefaultCategory,
			Reverse: removeDefaultCategory,
		},
		{
			Name:         "backfill_book_categories",
			Dependencies: []string{"seed_default_category"},
			Forward:      backfillBookCategories,
			// Which books were backfilled is not recorded, so this
			// step cannot be undone.
		},
	}
}

// RegisterDemo registers every demo step with the service.
func RegisterDemo(svc *services.MigrationService) error {
	for _, step := range Demo() {
		if err := svc.Register(step); err != nil {
			return err
		}
	}
	return nil
}

func seedDefaultCategory(ctx context.Context, tx ports.Tx) error {
	existing, err := tx.FindByFields(ctx, "category", map[string]any{"name": defaultCategoryName})
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return tx.Insert(ctx, &entities.Record{
		ID:     uuid.New().String(),
		Entity: "category",
		Values: map[string]any{"name": defaultCategoryName},
	})
}

func removeDefaultCategory(ctx context.Context, tx ports.Tx) error {
	cat, err := tx.FindByFields(ctx, "category", map[string]any{"name": defaultCategoryName})
	if err != nil {
		return err
	}
	if cat == nil {
		return nil
	}

	books, err := tx.List(ctx, "book")
	if err != nil {
		return err
	}
	for _, book := range books {
		if id, _ := book.Get("category").(string); id == cat.ID {
			return fmt.Errorf("category %q still referenced by book %s", defaultCategoryName, book.ID)
		}
	}
	return tx.Delete(ctx, "category", cat.ID)
}

func backfillBookCategories(ctx context.Context, tx ports.Tx) error {
	def, err := tx.FindByFields(ctx, "category", map[string]any{"name": defaultCategoryName})
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("default category %q not found", defaultCategoryName)
	}
	defaultID := def.ID

	books, err := tx.List(ctx, "book")
	if err != nil {
		return err
	}
	for _, book := range books {
		if book.Get("category") != nil {
			continue
		}
		book.Set("category", defaultID)
		if err := tx.Update(ctx, book); err != nil {
			return err
		}
	}
	return nil
}
