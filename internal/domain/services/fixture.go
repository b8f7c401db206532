package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/ports"
	"github.com/strata-db/strata/internal/infrastructure/parsers"
)

var timeNow = time.Now

// LoadOptions tune a fixture load.
type LoadOptions struct {
	// NaturalKey names the fields that identify a record when it carries
	// no explicit id. Records whose natural key matches an existing
	// record are left untouched unless Update is set.
	NaturalKey []string
	// Update overwrites matched records with the fixture's values
	// instead of skipping them.
	Update bool
	// DryRun validates the whole fixture without applying anything.
	DryRun bool
}

// LoadResult reports the outcome of a fixture load.
type LoadResult struct {
	Created int
	Updated int
	Skipped int
	Errors  []string
}

// FixtureService loads serialized records into the store and dumps the
// store back out.
type FixtureService struct {
	registry *entities.Registry
	store    ports.Store
	rels     *RelationshipService
	log      *zap.SugaredLogger
}

// NewFixtureService creates a new FixtureService.
func NewFixtureService(registry *entities.Registry, store ports.Store, rels *RelationshipService, log *zap.SugaredLogger) *FixtureService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FixtureService{registry: registry, store: store, rels: rels, log: log}
}

// LoadFile loads a fixture file, inferring the format from its extension.
func (s *FixtureService) LoadFile(ctx context.Context, path string, opts LoadOptions) (*LoadResult, error) {
	parser := parsers.ForFile(path)
	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture file: %w", err)
	}
	defer f.Close()

	return s.Load(ctx, f, parser, opts)
}

// Load parses records from r and applies them with get-or-create
// semantics: records matching an existing one by id or natural key are
// skipped, so reloading a fixture is idempotent. Update mode overwrites
// matches instead. The load is all or nothing: every record is
// validated first, and if any record fails the store is left untouched
// and the errors are reported in the result.
func (s *FixtureService) Load(ctx context.Context, r io.Reader, parser parsers.Parser, opts LoadOptions) (*LoadResult, error) {
	raws, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	result := &LoadResult{}
	plan := make([]*plannedRecord, 0, len(raws))

	for _, raw := range raws {
		planned, err := s.validate(raw, opts)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", raw.LineNum, err))
			continue
		}
		plan = append(plan, planned)
	}

	if len(result.Errors) > 0 {
		result.Skipped = len(raws)
		return result, nil
	}
	if opts.DryRun {
		s.log.Infow("dry run, no changes applied", "records", len(plan))
		result.Skipped = len(plan)
		return result, nil
	}

	err = s.store.Apply(ctx, func(tx ports.Tx) error {
		for _, planned := range plan {
			outcome, err := s.apply(ctx, tx, planned, opts.Update)
			if err != nil {
				return fmt.Errorf("record %d: %w", planned.raw.LineNum, err)
			}
			switch outcome {
			case outcomeCreated:
				result.Created++
			case outcomeUpdated:
				result.Updated++
			case outcomeSkipped:
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("fixture loaded",
		"created", result.Created, "updated", result.Updated, "skipped", result.Skipped)
	return result, nil
}

type plannedRecord struct {
	raw        parsers.RawRecord
	values     map[string]any
	naturalKey []string
}

// validate normalizes a raw record against the schema without touching
// the store.
func (s *FixtureService) validate(raw parsers.RawRecord, opts LoadOptions) (*plannedRecord, error) {
	if raw.Entity == "" {
		return nil, fmt.Errorf("missing entity name")
	}
	values, err := s.registry.ValidateRecord(raw.Entity, raw.Values)
	if err != nil {
		return nil, err
	}

	key := raw.NaturalKey
	if len(key) == 0 {
		key = opts.NaturalKey
	}
	def, _ := s.registry.Get(raw.Entity)
	for _, field := range key {
		if _, ok := def.Field(field); !ok {
			return nil, &entities.ValidationError{Entity: raw.Entity, Field: field, Reason: "unknown natural key field"}
		}
	}

	return &plannedRecord{raw: raw, values: values, naturalKey: key}, nil
}

type applyOutcome int

const (
	outcomeCreated applyOutcome = iota
	outcomeUpdated
	outcomeSkipped
)

// apply inserts one validated record inside the transaction. A record
// matching an existing one by id or natural key is skipped, or
// overwritten when update is set.
func (s *FixtureService) apply(ctx context.Context, tx ports.Tx, planned *plannedRecord, update bool) (applyOutcome, error) {
	existing, err := s.resolveExisting(ctx, tx, planned)
	if err != nil {
		return outcomeSkipped, err
	}

	if existing != nil {
		if !update {
			return outcomeSkipped, nil
		}
		for k, v := range planned.values {
			existing.Set(k, v)
		}
		if def, err := s.registry.Get(planned.raw.Entity); err == nil && def.Timestamps {
			existing.UpdatedAt = timeNow()
		}
		return outcomeUpdated, tx.Update(ctx, existing)
	}

	rec := newRecord(s.registry, planned.raw.Entity, planned.values)
	if planned.raw.ID != "" {
		rec.ID = planned.raw.ID
	}
	return outcomeCreated, tx.Insert(ctx, rec)
}

// resolveExisting finds the record a fixture row matches, first by
// explicit id, then by natural key.
func (s *FixtureService) resolveExisting(ctx context.Context, tx ports.Tx, planned *plannedRecord) (*entities.Record, error) {
	if planned.raw.ID != "" {
		return tx.Get(ctx, planned.raw.Entity, planned.raw.ID)
	}
	if len(planned.naturalKey) == 0 {
		return nil, nil
	}

	match := make(map[string]any, len(planned.naturalKey))
	for _, field := range planned.naturalKey {
		match[field] = planned.values[field]
	}
	return tx.FindByFields(ctx, planned.raw.Entity, match)
}

// DumpOptions tune a dump.
type DumpOptions struct {
	// Format names the output serialization. Empty means json.
	Format string
	// OrderBy sorts the dumped records by the named fields instead of
	// insertion order, for deterministic output across stores.
	OrderBy []string
}

// Dump writes every record of an entity to w, in insertion order unless
// OrderBy says otherwise.
func (s *FixtureService) Dump(ctx context.Context, w io.Writer, entity string, opts DumpOptions) (int, error) {
	def, err := s.registry.Get(entity)
	if err != nil {
		return 0, err
	}

	format := opts.Format
	if format == "" {
		format = "json"
	}
	writer := parsers.WriterForFormat(format, def.FieldNames())
	if writer == nil {
		return 0, fmt.Errorf("unsupported dump format %q", format)
	}

	records, err := s.store.List(ctx, entity)
	if err != nil {
		return 0, err
	}

	if len(opts.OrderBy) > 0 {
		for _, field := range opts.OrderBy {
			if _, ok := def.Field(field); !ok {
				return 0, &entities.ValidationError{Entity: entity, Field: field, Reason: "unknown order field"}
			}
		}
		sort.SliceStable(records, func(i, j int) bool {
			for _, field := range opts.OrderBy {
				cmp, ok := compareForSort(records[i].Get(field), records[j].Get(field))
				if !ok || cmp == 0 {
					continue
				}
				return cmp < 0
			}
			return false
		})
	}

	raws := make([]parsers.RawRecord, 0, len(records))
	for _, rec := range records {
		raws = append(raws, parsers.RawRecord{
			Entity: entity,
			ID:     rec.ID,
			Values: rec.Values,
		})
	}

	if err := writer.Write(w, raws); err != nil {
		return 0, fmt.Errorf("writing dump: %w", err)
	}
	return len(raws), nil
}

// DumpFile dumps an entity to a file, inferring the format from the
// file's extension.
func (s *FixtureService) DumpFile(ctx context.Context, path, entity string, orderBy []string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating dump file: %w", err)
	}
	defer f.Close()

	return s.Dump(ctx, f, entity, DumpOptions{
		Format:  formatForExt(filepath.Ext(path)),
		OrderBy: orderBy,
	})
}

func formatForExt(ext string) string {
	switch ext {
	case ".yaml", ".yml":
		return "yaml"
	case ".csv":
		return "csv"
	default:
		return "json"
	}
}
