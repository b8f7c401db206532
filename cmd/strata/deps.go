package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/application/handlers"
	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/ports"
	"github.com/strata-db/strata/internal/domain/services"
	"github.com/strata-db/strata/internal/infrastructure/config"
	"github.com/strata-db/strata/internal/infrastructure/snapshot/sqlite"
	"github.com/strata-db/strata/internal/infrastructure/store/memory"
	"github.com/strata-db/strata/internal/migrations"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config         *config.Config
	Registry       *entities.Registry
	Log            *zap.SugaredLogger
	LoadHandler    *handlers.LoadHandler
	DumpHandler    *handlers.DumpHandler
	MigrateHandler *handlers.MigrateHandler
	RecordsHandler *handlers.RecordsHandler

	basePath string
	store    ports.Store
	snapshot *sqlite.Repository
}

// withDeps loads config, restores the snapshot into an in-memory store
// and builds handlers, then calls the provided function. It handles
// cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck // stderr sync failure is harmless

	registry, err := config.LoadSchema(cfg.SchemaPath(cwd))
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	store := memory.New(registry, log)

	snapshot, err := sqlite.NewRepository(cfg.SnapshotPath(cwd), log)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer snapshot.Close()

	if err := snapshot.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring snapshot schema: %w", err)
	}
	if err := snapshot.Restore(ctx, registry, store); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}

	relationshipService := services.NewRelationshipService(registry, store, log)
	fixtureService := services.NewFixtureService(registry, store, relationshipService, log)
	queryService := services.NewQueryService(registry, store, log)
	migrationService := services.NewMigrationService(registry, store, snapshot, log)
	// Persist after every step so the snapshot never lags the ledger.
	migrationService.OnStepCommitted(func(ctx context.Context) error {
		return snapshot.Save(ctx, registry, store)
	})
	if err := migrations.RegisterDemo(migrationService); err != nil {
		return fmt.Errorf("registering migration steps: %w", err)
	}

	deps := &Deps{
		Config:         cfg,
		Registry:       registry,
		Log:            log,
		LoadHandler:    handlers.NewLoadHandler(fixtureService),
		DumpHandler:    handlers.NewDumpHandler(fixtureService),
		MigrateHandler: handlers.NewMigrateHandler(migrationService),
		RecordsHandler: handlers.NewRecordsHandler(queryService, relationshipService),

		basePath: cwd,
		store:    store,
		snapshot: snapshot,
	}

	return fn(deps)
}

// Persist writes the in-memory state back to the snapshot database.
// Mutating commands call it after their handler succeeds.
func (d *Deps) Persist(ctx context.Context) error {
	if err := d.snapshot.Save(ctx, d.Registry, d.store); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// newLogger builds the CLI logger from config. Development mode uses
// the verbose console encoder.
func newLogger(cfg config.LoggingConfig) (*zap.SugaredLogger, error) {
	var z zap.Config
	if cfg.Development {
		z = zap.NewDevelopmentConfig()
	} else {
		z = zap.NewProductionConfig()
	}
	z.OutputPaths = []string{"stderr"}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		z.Level = level
	}

	logger, err := z.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
