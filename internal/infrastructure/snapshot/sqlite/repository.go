// Package sqlite persists store state and the migration ledger between
// CLI invocations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/ports"
)

// Repository stores snapshots of record state plus the applied-migration
// ledger in a single SQLite file. It implements ports.Ledger.
type Repository struct {
	db   *sql.DB
	path string
	log  *zap.SugaredLogger
}

var _ ports.Ledger = (*Repository)(nil)

// NewRepository opens (or creates) the snapshot database at path.
func NewRepository(path string, log *zap.SugaredLogger) (*Repository, error) {
	if path == "" {
		return nil, errors.New("snapshot path is required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{db: db, path: path, log: log}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the snapshot tables if they don't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Records, field values serialized as JSON; seq preserves insertion order
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		entity TEXT NOT NULL,
		id TEXT NOT NULL,
		field_values TEXT NOT NULL,
		created_at TIMESTAMP,
		updated_at TIMESTAMP,
		UNIQUE(entity, id)
	);
	CREATE INDEX IF NOT EXISTS idx_records_entity ON records(entity);

	-- Many-to-many link rows, keyed by qualified relationship name
	CREATE TABLE IF NOT EXISTS links (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		rel TEXT NOT NULL,
		left_id TEXT NOT NULL,
		right_id TEXT NOT NULL,
		through_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_links_rel ON links(rel);

	-- Applied migration ledger
	CREATE TABLE IF NOT EXISTS applied_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	);
	`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating snapshot schema: %w", err)
	}
	return nil
}

// Save replaces the persisted snapshot with the reader's current state.
// The whole replacement runs in one SQL transaction.
func (r *Repository) Save(ctx context.Context, registry *entities.Registry, reader ports.Reader) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM links`); err != nil {
		return fmt.Errorf("clearing links: %w", err)
	}

	recordCount := 0
	for _, def := range registry.Entities() {
		records, err := reader.List(ctx, def.Name)
		if err != nil {
			return fmt.Errorf("listing %s records: %w", def.Name, err)
		}
		for _, rec := range records {
			data, err := json.Marshal(rec.Values)
			if err != nil {
				return fmt.Errorf("marshaling %s %s: %w", rec.Entity, rec.ID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO records (entity, id, field_values, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)
			`, rec.Entity, rec.ID, string(data), nullTime(rec.CreatedAt), nullTime(rec.UpdatedAt))
			if err != nil {
				return fmt.Errorf("saving %s %s: %w", rec.Entity, rec.ID, err)
			}
			recordCount++
		}

		for _, rel := range registry.Relationships(def.Name) {
			if rel.Kind != entities.ManyToMany {
				continue
			}
			links, err := reader.Links(ctx, rel.Qualified())
			if err != nil {
				return fmt.Errorf("listing %s links: %w", rel.Qualified(), err)
			}
			for _, link := range links {
				_, err = tx.ExecContext(ctx, `
					INSERT INTO links (rel, left_id, right_id, through_id)
					VALUES (?, ?, ?, ?)
				`, link.Rel, link.LeftID, link.RightID, nullString(link.ThroughID))
				if err != nil {
					return fmt.Errorf("saving link %s: %w", link.Rel, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	r.log.Debugw("snapshot saved", "path", r.path, "records", recordCount)
	return nil
}

// Restore loads the persisted snapshot into the store as one atomic
// application. Field values are re-normalized against the registry so
// dates and integers come back in their canonical types.
func (r *Repository) Restore(ctx context.Context, registry *entities.Registry, store ports.Store) error {
	records, err := r.loadRecords(ctx, registry)
	if err != nil {
		return err
	}
	links, err := r.loadLinks(ctx)
	if err != nil {
		return err
	}

	return store.Apply(ctx, func(tx ports.Tx) error {
		for _, rec := range records {
			if err := tx.Insert(ctx, rec); err != nil {
				return fmt.Errorf("restoring %s %s: %w", rec.Entity, rec.ID, err)
			}
		}
		for _, link := range links {
			if err := tx.AddLink(ctx, link); err != nil {
				return fmt.Errorf("restoring link %s: %w", link.Rel, err)
			}
		}
		return nil
	})
}

// loadRecords reads all persisted records in insertion order.
func (r *Repository) loadRecords(ctx context.Context, registry *entities.Registry) ([]*entities.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entity, id, field_values, created_at, updated_at
		FROM records
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []*entities.Record
	for rows.Next() {
		var rec entities.Record
		var data string
		var created, updated sql.NullTime

		if err := rows.Scan(&rec.Entity, &rec.ID, &data, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.CreatedAt = created.Time
		rec.UpdatedAt = updated.Time

		var raw map[string]any
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			return nil, fmt.Errorf("unmarshaling %s %s: %w", rec.Entity, rec.ID, err)
		}
		values, err := registry.ValidateRecord(rec.Entity, raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot does not match schema: %w", err)
		}
		rec.Values = values

		records = append(records, &rec)
	}
	return records, rows.Err()
}

// loadLinks reads all persisted link rows in insertion order.
func (r *Repository) loadLinks(ctx context.Context) ([]entities.Link, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rel, left_id, right_id, through_id
		FROM links
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	var links []entities.Link
	for rows.Next() {
		var link entities.Link
		var through sql.NullString
		if err := rows.Scan(&link.Rel, &link.LeftID, &link.RightID, &through); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		link.ThroughID = through.String
		links = append(links, link)
	}
	return links, rows.Err()
}

// AppliedSteps implements ports.Ledger.
func (r *Repository) AppliedSteps(ctx context.Context) ([]ports.AppliedStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, applied_at
		FROM applied_migrations
		ORDER BY applied_at ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	var steps []ports.AppliedStep
	for rows.Next() {
		var step ports.AppliedStep
		if err := rows.Scan(&step.Name, &step.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// MarkApplied implements ports.Ledger.
func (r *Repository) MarkApplied(ctx context.Context, name string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applied_migrations (name, applied_at) VALUES (?, ?)
	`, name, at)
	if err != nil {
		return fmt.Errorf("marking %s applied: %w", name, err)
	}
	return nil
}

// UnmarkApplied implements ports.Ledger.
func (r *Repository) UnmarkApplied(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM applied_migrations WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("unmarking %s: %w", name, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("migration not recorded: %s", name)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
