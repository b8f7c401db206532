package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/ports"
	"github.com/strata-db/strata/internal/domain/query"
)

// QueryService evaluates filters, ordering and aggregates over the
// records of one entity.
type QueryService struct {
	registry *entities.Registry
	store    ports.Store
	log      *zap.SugaredLogger
}

// NewQueryService creates a new QueryService.
func NewQueryService(registry *entities.Registry, store ports.Store, log *zap.SugaredLogger) *QueryService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &QueryService{registry: registry, store: store, log: log}
}

// Get returns one record by id, failing when it does not exist.
func (s *QueryService) Get(ctx context.Context, entity, id string) (*entities.Record, error) {
	if _, err := s.registry.Get(entity); err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("record not found: %s %s", entity, id)
	}
	return rec, nil
}

// Filter returns the entity's records matching pred, lazily, in
// insertion order. A nil predicate matches everything. The sequence
// reads the store on each iteration, so ranging over it after a write
// sees the write.
func (s *QueryService) Filter(ctx context.Context, entity string, pred query.Predicate) (query.Seq, error) {
	if _, err := s.registry.Get(entity); err != nil {
		return nil, err
	}

	return func(yield func(*entities.Record) bool) {
		records, err := s.store.List(ctx, entity)
		if err != nil {
			s.log.Errorw("listing records", "entity", entity, "error", err)
			return
		}
		for _, rec := range records {
			if pred != nil && !pred.Match(rec) {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}, nil
}

// FilterExpr parses expr into a predicate and filters with it. An empty
// expression matches everything.
func (s *QueryService) FilterExpr(ctx context.Context, entity, expr string) (query.Seq, error) {
	var pred query.Predicate
	if strings.TrimSpace(expr) != "" {
		parsed, err := query.Parse(expr)
		if err != nil {
			return nil, err
		}
		pred = parsed
	}
	return s.Filter(ctx, entity, pred)
}

// Select materializes a filtered, ordered result set. Empty keys fall
// back to the entity's declared ordering; with neither, insertion order
// is kept.
func (s *QueryService) Select(ctx context.Context, entity string, pred query.Predicate, keys []entities.OrderKey) ([]*entities.Record, error) {
	def, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	seq, err := s.Filter(ctx, entity, pred)
	if err != nil {
		return nil, err
	}

	var out []*entities.Record
	for rec := range seq {
		out = append(out, rec)
	}

	if len(keys) == 0 {
		keys = def.Ordering
	}
	if len(keys) > 0 {
		if err := s.sortBy(ctx, entity, out, keys); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// sortBy orders records by the given keys, stably. A key of the form
// "rel.field" follows a many-to-one or one-to-one edge and compares the
// related record's field; records with no related record sort first.
func (s *QueryService) sortBy(ctx context.Context, entity string, records []*entities.Record, keys []entities.OrderKey) error {
	type keyFn func(*entities.Record) any
	fns := make([]keyFn, 0, len(keys))

	for _, key := range keys {
		relName, field, hopped := strings.Cut(key.Field, ".")
		if !hopped {
			f := key.Field
			fns = append(fns, func(rec *entities.Record) any {
				return query.FieldValue(rec, f)
			})
			continue
		}

		rel, err := s.registry.Relationship(entity, relName)
		if err != nil {
			return err
		}
		if rel.Kind == entities.ManyToMany {
			return fmt.Errorf("cannot order by many-to-many relationship %s", rel.Qualified())
		}
		cache := make(map[string]any)
		fns = append(fns, func(rec *entities.Record) any {
			if v, ok := cache[rec.ID]; ok {
				return v
			}
			var target *entities.Record
			switch rel.Kind {
			case entities.ManyToOne:
				if id, _ := rec.Get(rel.Field).(string); id != "" {
					target, _ = s.store.Get(ctx, rel.Target, id)
				}
			case entities.OneToOne:
				target, _ = s.store.Get(ctx, rel.Target, rec.ID)
			}
			var v any
			if target != nil {
				v = query.FieldValue(target, field)
			}
			cache[rec.ID] = v
			return v
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		for k, fn := range fns {
			a, b := fn(records[i]), fn(records[j])
			cmp, ok := compareForSort(a, b)
			if !ok || cmp == 0 {
				continue
			}
			if keys[k].Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return nil
}

// compareForSort compares two values for ordering, placing nils before
// everything else.
func compareForSort(a, b any) (int, bool) {
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return -1, true
	case b == nil:
		return 1, true
	}
	return query.Compare(a, b)
}

// AggregateKind names a numeric reduction over a field.
type AggregateKind string

const (
	AggCount AggregateKind = "count"
	AggSum   AggregateKind = "sum"
	AggAvg   AggregateKind = "avg"
	AggMin   AggregateKind = "min"
	AggMax   AggregateKind = "max"
)

// Stat is an aggregate result. Valid is false when the reduction had no
// input values, which keeps "no data" distinct from a zero result.
type Stat struct {
	Valid bool
	Value float64
}

// GroupStat is one group's aggregate in a grouped reduction.
type GroupStat struct {
	Key  any
	Stat Stat
}

// Aggregate reduces the field values of the records matching pred.
// Count ignores the field and counts matches; the other kinds skip
// records whose field is nil or not numeric.
func (s *QueryService) Aggregate(ctx context.Context, entity string, pred query.Predicate, kind AggregateKind, field string) (Stat, error) {
	seq, err := s.Filter(ctx, entity, pred)
	if err != nil {
		return Stat{}, err
	}

	agg := newAccumulator(kind)
	for rec := range seq {
		agg.add(rec, field)
	}
	return agg.stat(), nil
}

// AggregateBy reduces per group, keyed by the groupBy field's value.
// Groups appear in first-seen order.
func (s *QueryService) AggregateBy(ctx context.Context, entity string, pred query.Predicate, kind AggregateKind, field, groupBy string) ([]GroupStat, error) {
	seq, err := s.Filter(ctx, entity, pred)
	if err != nil {
		return nil, err
	}

	groups := make(map[any]*accumulator)
	var order []any
	for rec := range seq {
		key := query.FieldValue(rec, groupBy)
		agg, ok := groups[key]
		if !ok {
			agg = newAccumulator(kind)
			groups[key] = agg
			order = append(order, key)
		}
		agg.add(rec, field)
	}

	out := make([]GroupStat, 0, len(order))
	for _, key := range order {
		out = append(out, GroupStat{Key: key, Stat: groups[key].stat()})
	}
	return out, nil
}

type accumulator struct {
	kind AggregateKind
	n    int
	sum  float64
	min  float64
	max  float64
}

func newAccumulator(kind AggregateKind) *accumulator {
	return &accumulator{kind: kind}
}

func (a *accumulator) add(rec *entities.Record, field string) {
	if a.kind == AggCount {
		a.n++
		return
	}
	v, ok := query.Numeric(query.FieldValue(rec, field))
	if !ok {
		return
	}
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.n++
}

func (a *accumulator) stat() Stat {
	if a.kind == AggCount {
		return Stat{Valid: true, Value: float64(a.n)}
	}
	if a.n == 0 {
		return Stat{}
	}
	switch a.kind {
	case AggSum:
		return Stat{Valid: true, Value: a.sum}
	case AggAvg:
		return Stat{Valid: true, Value: a.sum / float64(a.n)}
	case AggMin:
		return Stat{Valid: true, Value: a.min}
	case AggMax:
		return Stat{Valid: true, Value: a.max}
	}
	return Stat{}
}
