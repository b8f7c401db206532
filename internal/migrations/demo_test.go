package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/mocks"
	"github.com/strata-db/strata/internal/domain/ports"
	"github.com/strata-db/strata/internal/domain/services"
	"github.com/strata-db/strata/internal/infrastructure/store/memory"
)

func newDemoService(t *testing.T) (*memory.Store, *services.MigrationService) {
	t.Helper()
	registry, err := entities.DefaultRegistry()
	require.NoError(t, err)
	store := memory.New(registry, nil)
	svc := services.NewMigrationService(registry, store, mocks.NewLedger(), nil)
	require.NoError(t, RegisterDemo(svc))
	return store, svc
}

func insert(t *testing.T, store *memory.Store, entity, id string, values map[string]any) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Apply(ctx, func(tx ports.Tx) error {
		return tx.Insert(ctx, &entities.Record{ID: id, Entity: entity, Values: values})
	}))
}

func defaultCategory(t *testing.T, store *memory.Store) *entities.Record {
	t.Helper()
	cat, err := store.FindByFields(context.Background(), "category", map[string]any{"name": defaultCategoryName})
	require.NoError(t, err)
	return cat
}

func TestDemo_PlanOrder(t *testing.T) {
	_, svc := newDemoService(t)

	plan, err := svc.Plan()
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "seed_default_category", plan[0].Name)
	assert.Equal(t, "backfill_book_categories", plan[1].Name)
}

func TestDemo_SeedAndBackfill(t *testing.T) {
	store, svc := newDemoService(t)
	ctx := context.Background()

	insert(t, store, "author", "au1", map[string]any{"name": "Kafka", "email": "k@example.com"})
	insert(t, store, "category", "c1", map[string]any{"name": "Fiction"})
	insert(t, store, "book", "b1", map[string]any{"title": "The Trial", "author": "au1", "isbn": "1"})
	insert(t, store, "book", "b2", map[string]any{"title": "Amerika", "author": "au1", "category": "c1", "isbn": "2"})

	applied, err := svc.Apply(ctx, services.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"seed_default_category", "backfill_book_categories"}, applied)

	cat := defaultCategory(t, store)
	require.NotNil(t, cat)

	b1, err := store.Get(ctx, "book", "b1")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, b1.Get("category"), "uncategorized book picks up the default")

	b2, err := store.Get(ctx, "book", "b2")
	require.NoError(t, err)
	assert.Equal(t, "c1", b2.Get("category"), "categorized book untouched")
}

func TestDemo_SeedIsIdempotent(t *testing.T) {
	store, svc := newDemoService(t)
	ctx := context.Background()

	insert(t, store, "category", "c1", map[string]any{"name": defaultCategoryName})

	_, err := svc.Apply(ctx, services.ApplyOptions{To: "seed_default_category"})
	require.NoError(t, err)

	records, err := store.List(ctx, "category")
	require.NoError(t, err)
	assert.Len(t, records, 1, "existing default category is reused")
}

func TestDemo_ReverseBlockedWhileReferenced(t *testing.T) {
	store, svc := newDemoService(t)
	ctx := context.Background()

	insert(t, store, "author", "au1", map[string]any{"name": "Kafka", "email": "k@example.com"})
	insert(t, store, "book", "b1", map[string]any{"title": "The Trial", "author": "au1", "isbn": "1"})

	_, err := svc.Apply(ctx, services.ApplyOptions{To: "seed_default_category"})
	require.NoError(t, err)

	// Point the book at the seeded category, then try to revert the seed.
	cat := defaultCategory(t, store)
	require.NoError(t, store.Apply(ctx, func(tx ports.Tx) error {
		book, err := tx.Get(ctx, "book", "b1")
		if err != nil {
			return err
		}
		book.Set("category", cat.ID)
		return tx.Update(ctx, book)
	}))

	_, err = svc.Revert(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still referenced")
	assert.NotNil(t, defaultCategory(t, store))
}

func TestDemo_BackfillIsIrreversible(t *testing.T) {
	_, svc := newDemoService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, services.ApplyOptions{})
	require.NoError(t, err)

	_, err = svc.Revert(ctx, 0)
	var irr *entities.IrreversibleStepError
	require.ErrorAs(t, err, &irr)
	assert.Equal(t, "backfill_book_categories", irr.Step)
}
