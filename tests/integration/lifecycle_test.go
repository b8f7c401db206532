package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/domain/services"
	"github.com/strata-db/strata/internal/infrastructure/config"
	"github.com/strata-db/strata/internal/infrastructure/parsers"
	"github.com/strata-db/strata/internal/infrastructure/snapshot/sqlite"
	"github.com/strata-db/strata/internal/infrastructure/store/memory"
	"github.com/strata-db/strata/internal/migrations"
)

const fixtureJSON = `[
	{"entity": "author", "id": "au1", "values": {"name": "Franz Kafka", "email": "franz@example.com"}},
	{"entity": "author", "id": "au2", "values": {"name": "Jane Austen", "email": "jane@example.com"}},
	{"entity": "book", "id": "b1", "values": {"title": "The Trial", "author": "au1", "publication_date": "1925-04-26", "isbn": "9780805209990"}},
	{"entity": "book", "id": "b2", "values": {"title": "Emma", "author": "au2", "publication_date": "1815-12-23", "isbn": "9780141439587"}},
	{"entity": "review", "id": "r1", "values": {"book": "b1", "reviewer_name": "Max Brod", "rating": 5}}
]`

// The whole lifecycle against a real project directory: init, bootstrap
// the demo schema, load a fixture, migrate, query, cascade, persist the
// snapshot, and restore it into a fresh store.
func TestProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	// Init and bootstrap.
	require.NoError(t, config.WriteDefault(base))
	cfg, err := config.Load(base)
	require.NoError(t, err)
	require.NoError(t, config.WriteSchema(base, []byte(config.DemoSchemaYAML)))

	registry, err := config.LoadSchema(cfg.SchemaPath(base))
	require.NoError(t, err)

	store := memory.New(registry, nil)
	snapshot, err := sqlite.NewRepository(cfg.SnapshotPath(base), nil)
	require.NoError(t, err)
	defer snapshot.Close()
	require.NoError(t, snapshot.EnsureSchema(ctx))

	rels := services.NewRelationshipService(registry, store, nil)
	fixtures := services.NewFixtureService(registry, store, rels, nil)
	queries := services.NewQueryService(registry, store, nil)
	migrator := services.NewMigrationService(registry, store, snapshot, nil)
	require.NoError(t, migrations.RegisterDemo(migrator))

	// Load the fixture.
	result, err := fixtures.Load(ctx, strings.NewReader(fixtureJSON), parsers.ForFormat("json"), services.LoadOptions{})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	assert.Equal(t, 5, result.Created)

	// Migrate: seeds the default category and backfills both books.
	applied, err := migrator.Apply(ctx, services.ApplyOptions{})
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	general, err := store.FindByFields(ctx, "category", map[string]any{"name": "General"})
	require.NoError(t, err)
	require.NotNil(t, general)

	books, err := queries.Select(ctx, "book", nil, nil)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Emma", books[0].Get("title"), "declared ordering by title")
	assert.Equal(t, general.ID, books[0].Get("category"))

	// Cascade: deleting an author takes their book and its review.
	removed, err := rels.CascadeDelete(ctx, "author", "au1")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	// Persist and restore into a fresh store.
	require.NoError(t, snapshot.Save(ctx, registry, store))

	restored := memory.New(registry, nil)
	require.NoError(t, snapshot.Restore(ctx, registry, restored))

	books, err = restored.List(ctx, "book")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Emma", books[0].Get("title"))

	reviews, err := restored.List(ctx, "review")
	require.NoError(t, err)
	assert.Empty(t, reviews)

	// The migration ledger survives in the snapshot database.
	steps, err := snapshot.AppliedSteps(ctx)
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

// Reopening the snapshot database from disk preserves both the records
// and the ledger, the way a second CLI invocation sees them.
func TestSnapshotSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	require.NoError(t, config.WriteDefault(base))
	cfg, err := config.Load(base)
	require.NoError(t, err)
	require.NoError(t, config.WriteSchema(base, []byte(config.DemoSchemaYAML)))
	registry, err := config.LoadSchema(cfg.SchemaPath(base))
	require.NoError(t, err)

	// First session: load and persist.
	{
		store := memory.New(registry, nil)
		snapshot, err := sqlite.NewRepository(cfg.SnapshotPath(base), nil)
		require.NoError(t, err)
		require.NoError(t, snapshot.EnsureSchema(ctx))

		rels := services.NewRelationshipService(registry, store, nil)
		fixtures := services.NewFixtureService(registry, store, rels, nil)
		_, err = fixtures.Load(ctx, strings.NewReader(fixtureJSON), parsers.ForFormat("json"), services.LoadOptions{})
		require.NoError(t, err)

		require.NoError(t, snapshot.Save(ctx, registry, store))
		require.NoError(t, snapshot.Close())
	}

	// Second session: restore and query.
	snapshot, err := sqlite.NewRepository(cfg.SnapshotPath(base), nil)
	require.NoError(t, err)
	defer snapshot.Close()
	require.NoError(t, snapshot.EnsureSchema(ctx))

	store := memory.New(registry, nil)
	require.NoError(t, snapshot.Restore(ctx, registry, store))

	queries := services.NewQueryService(registry, store, nil)
	stat, err := queries.Aggregate(ctx, "review", nil, services.AggAvg, "rating")
	require.NoError(t, err)
	require.True(t, stat.Valid)
	assert.Equal(t, float64(5), stat.Value)
}
