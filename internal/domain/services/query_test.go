package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/query"
)

func newQueryService(t *testing.T) (*fixture, *QueryService) {
	t.Helper()
	f := newFixture(t)
	return f, NewQueryService(f.registry, f.store, nil)
}

func seedAlbums(t *testing.T, f *fixture) {
	t.Helper()
	f.insert(t, "musician", "m1", map[string]any{"first_name": "Django", "last_name": "Reinhardt"})
	f.insert(t, "musician", "m2", map[string]any{"first_name": "John", "last_name": "Coltrane"})
	f.insert(t, "album", "a1", map[string]any{"artist": "m1", "name": "Djangology", "num_stars": int64(5)})
	f.insert(t, "album", "a2", map[string]any{"artist": "m2", "name": "Giant Steps", "num_stars": int64(5)})
	f.insert(t, "album", "a3", map[string]any{"artist": "m2", "name": "Blue Train", "num_stars": int64(4)})
}

func collect(seq query.Seq) []*entities.Record {
	var out []*entities.Record
	for rec := range seq {
		out = append(out, rec)
	}
	return out
}

func names(records []*entities.Record) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Get("name").(string))
	}
	return out
}

func TestQueryGet(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()
	seedAlbums(t, f)

	rec, err := svc.Get(ctx, "album", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Djangology", rec.Get("name"))

	_, err = svc.Get(ctx, "album", "ghost")
	require.Error(t, err)
	_, err = svc.Get(ctx, "spaceship", "a1")
	require.Error(t, err)
}

func TestFilter(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()
	seedAlbums(t, f)

	seq, err := svc.Filter(ctx, "album", &query.Eq{Field: "num_stars", Value: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"Djangology", "Giant Steps"}, names(collect(seq)))

	// Nil predicate matches everything, in insertion order.
	seq, err = svc.Filter(ctx, "album", nil)
	require.NoError(t, err)
	assert.Len(t, collect(seq), 3)
}

func TestFilter_Lazy(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()
	seedAlbums(t, f)

	seq, err := svc.Filter(ctx, "album", nil)
	require.NoError(t, err)

	seen := 0
	for range seq {
		seen++
		if seen == 1 {
			break
		}
	}
	assert.Equal(t, 1, seen)
}

func TestFilter_SeesWritesAfterBuild(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()

	seq, err := svc.Filter(ctx, "topping", nil)
	require.NoError(t, err)
	assert.Empty(t, collect(seq))

	// The sequence reads the store at iteration time, so a record
	// inserted after the sequence was built shows up.
	f.insert(t, "topping", "t1", map[string]any{"name": "mushroom"})
	assert.Equal(t, []string{"mushroom"}, names(collect(seq)))

	f.insert(t, "topping", "t2", map[string]any{"name": "olive"})
	assert.Len(t, collect(seq), 2)
}

func TestFilterExpr(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()
	seedAlbums(t, f)

	seq, err := svc.FilterExpr(ctx, "album", `num_stars >= 5 and artist = "m2"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Giant Steps"}, names(collect(seq)))

	seq, err = svc.FilterExpr(ctx, "album", "  ")
	require.NoError(t, err)
	assert.Len(t, collect(seq), 3)

	_, err = svc.FilterExpr(ctx, "album", "num_stars >=")
	require.Error(t, err)
}

func TestSelect_ExplicitOrdering(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()
	seedAlbums(t, f)

	records, err := svc.Select(ctx, "album", nil, []entities.OrderKey{
		{Field: "num_stars", Desc: true},
		{Field: "name"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Djangology", "Giant Steps", "Blue Train"}, names(records))
}

func TestSelect_DeclaredOrderingFallback(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()

	f.insert(t, "author", "au1", map[string]any{"name": "Zola", "email": "z@example.com"})
	f.insert(t, "author", "au2", map[string]any{"name": "Austen", "email": "a@example.com"})

	// The author entity declares ordering by name.
	records, err := svc.Select(ctx, "author", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Austen", "Zola"}, names(records))
}

func TestSelect_RelationshipHop(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()
	seedAlbums(t, f)

	records, err := svc.Select(ctx, "album", nil, []entities.OrderKey{
		{Field: "artist.last_name"},
		{Field: "name"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Train", "Giant Steps", "Djangology"}, names(records))

	_, err = svc.Select(ctx, "album", nil, []entities.OrderKey{{Field: "nowhere.name"}})
	require.Error(t, err)
}

func TestSelect_RelationshipHop_NilsFirst(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()

	f.insert(t, "author", "au1", map[string]any{"name": "Kafka", "email": "k@example.com"})
	f.insert(t, "category", "c1", map[string]any{"name": "Fiction"})
	f.insert(t, "book", "b1", map[string]any{"title": "The Trial", "author": "au1", "category": "c1", "isbn": "1"})
	f.insert(t, "book", "b2", map[string]any{"title": "Amerika", "author": "au1", "isbn": "2"})

	records, err := svc.Select(ctx, "book", nil, []entities.OrderKey{{Field: "category.name"}})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b2", records[0].ID, "uncategorized books sort first")
}

func TestSelect_ManyToManyHopRejected(t *testing.T) {
	_, svc := newQueryService(t)

	_, err := svc.Select(context.Background(), "pizza", nil, []entities.OrderKey{{Field: "toppings.name"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "many-to-many")
}

func TestAggregate(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()
	seedAlbums(t, f)

	count, err := svc.Aggregate(ctx, "album", nil, AggCount, "")
	require.NoError(t, err)
	assert.Equal(t, Stat{Valid: true, Value: 3}, count)

	sum, err := svc.Aggregate(ctx, "album", nil, AggSum, "num_stars")
	require.NoError(t, err)
	assert.Equal(t, Stat{Valid: true, Value: 14}, sum)

	avg, err := svc.Aggregate(ctx, "album", &query.Eq{Field: "artist", Value: "m2"}, AggAvg, "num_stars")
	require.NoError(t, err)
	assert.Equal(t, Stat{Valid: true, Value: 4.5}, avg)

	min, err := svc.Aggregate(ctx, "album", nil, AggMin, "num_stars")
	require.NoError(t, err)
	assert.Equal(t, float64(4), min.Value)

	max, err := svc.Aggregate(ctx, "album", nil, AggMax, "num_stars")
	require.NoError(t, err)
	assert.Equal(t, float64(5), max.Value)
}

func TestAggregate_EmptyInput(t *testing.T) {
	_, svc := newQueryService(t)
	ctx := context.Background()

	// No data: count is a valid zero, the numeric kinds are invalid.
	count, err := svc.Aggregate(ctx, "album", nil, AggCount, "")
	require.NoError(t, err)
	assert.Equal(t, Stat{Valid: true, Value: 0}, count)

	avg, err := svc.Aggregate(ctx, "album", nil, AggAvg, "num_stars")
	require.NoError(t, err)
	assert.False(t, avg.Valid)
}

func TestAggregateBy(t *testing.T) {
	f, svc := newQueryService(t)
	ctx := context.Background()
	seedAlbums(t, f)

	groups, err := svc.AggregateBy(ctx, "album", nil, AggAvg, "num_stars", "artist")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Groups come back in first-seen order.
	assert.Equal(t, "m1", groups[0].Key)
	assert.Equal(t, Stat{Valid: true, Value: 5}, groups[0].Stat)
	assert.Equal(t, "m2", groups[1].Key)
	assert.Equal(t, Stat{Valid: true, Value: 4.5}, groups[1].Stat)
}
