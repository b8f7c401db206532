// Package query provides the predicate tree and lazy sequences used by the
// query façade. Predicates are boolean expression trees over field
// comparisons; sequences are restartable iterators evaluated against the
// current store state at iteration time.
package query

import (
	"iter"
	"strings"
	"time"

	"github.com/strata-db/strata/internal/domain/entities"
)

// Seq is a lazy, restartable sequence of records. Ranging over it twice
// re-evaluates the underlying source.
type Seq = iter.Seq[*entities.Record]

// Predicate is a node of a boolean expression tree over field comparisons.
type Predicate interface {
	// Match reports whether the record satisfies the predicate.
	Match(rec *entities.Record) bool
}

// FieldValue reads a field from a record, treating the lifecycle
// timestamps as addressable fields.
func FieldValue(rec *entities.Record, field string) any {
	switch field {
	case "id":
		return rec.ID
	case "created_at":
		if rec.CreatedAt.IsZero() {
			return nil
		}
		return rec.CreatedAt
	case "updated_at":
		if rec.UpdatedAt.IsZero() {
			return nil
		}
		return rec.UpdatedAt
	}
	return rec.Get(field)
}

// Eq matches records whose field equals the value.
type Eq struct {
	Field string
	Value any
}

func (p Eq) Match(rec *entities.Record) bool {
	return entities.ValueEqual(FieldValue(rec, p.Field), p.Value)
}

// Ne matches records whose field differs from the value.
type Ne struct {
	Field string
	Value any
}

func (p Ne) Match(rec *entities.Record) bool {
	v := FieldValue(rec, p.Field)
	if v == nil {
		return p.Value != nil
	}
	return !entities.ValueEqual(v, p.Value)
}

// Gt matches records whose field is strictly greater than the value.
type Gt struct {
	Field string
	Value any
}

func (p Gt) Match(rec *entities.Record) bool {
	c, ok := Compare(FieldValue(rec, p.Field), p.Value)
	return ok && c > 0
}

// Gte matches records whose field is greater than or equal to the value.
type Gte struct {
	Field string
	Value any
}

func (p Gte) Match(rec *entities.Record) bool {
	c, ok := Compare(FieldValue(rec, p.Field), p.Value)
	return ok && c >= 0
}

// Lt matches records whose field is strictly less than the value.
type Lt struct {
	Field string
	Value any
}

func (p Lt) Match(rec *entities.Record) bool {
	c, ok := Compare(FieldValue(rec, p.Field), p.Value)
	return ok && c < 0
}

// Lte matches records whose field is less than or equal to the value.
type Lte struct {
	Field string
	Value any
}

func (p Lte) Match(rec *entities.Record) bool {
	c, ok := Compare(FieldValue(rec, p.Field), p.Value)
	return ok && c <= 0
}

// Contains matches string fields containing the substring.
type Contains struct {
	Field     string
	Substring string
}

func (p Contains) Match(rec *entities.Record) bool {
	s, ok := FieldValue(rec, p.Field).(string)
	return ok && strings.Contains(s, p.Substring)
}

// In matches records whose field equals any of the values.
type In struct {
	Field  string
	Values []any
}

func (p In) Match(rec *entities.Record) bool {
	v := FieldValue(rec, p.Field)
	for _, candidate := range p.Values {
		if entities.ValueEqual(v, candidate) {
			return true
		}
	}
	return false
}

// IsNull matches records whose field is unset.
type IsNull struct {
	Field string
}

func (p IsNull) Match(rec *entities.Record) bool {
	return FieldValue(rec, p.Field) == nil
}

// And matches when every child predicate matches. Empty And matches all.
type And struct {
	Preds []Predicate
}

func (p And) Match(rec *entities.Record) bool {
	for _, child := range p.Preds {
		if !child.Match(rec) {
			return false
		}
	}
	return true
}

// Or matches when any child predicate matches. Empty Or matches none.
type Or struct {
	Preds []Predicate
}

func (p Or) Match(rec *entities.Record) bool {
	for _, child := range p.Preds {
		if child.Match(rec) {
			return true
		}
	}
	return false
}

// Not inverts its child predicate.
type Not struct {
	Pred Predicate
}

func (p Not) Match(rec *entities.Record) bool {
	return !p.Pred.Match(rec)
}

// Compare orders two normalized field values. Date and RFC 3339 strings
// compare against time.Time values. The second return is false when the
// values are not comparable (nil, mixed types).
func Compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	_, aTime := a.(time.Time)
	_, bTime := b.(time.Time)
	if aTime || bTime {
		at, aok := coerceTime(a)
		bt, bok := coerceTime(b)
		if !aok || !bok {
			return 0, false
		}
		return at.Compare(bt), true
	}

	if as, ok := a.(string); ok {
		bs, bok := b.(string)
		if !bok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}

	if ab, ok := a.(bool); ok {
		bb, bok := b.(bool)
		if !bok {
			return 0, false
		}
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		default:
			return 1, true
		}
	}

	an, aok := Numeric(a)
	bn, bok := Numeric(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}

// coerceTime interprets date and datetime literals so expressions can
// compare string literals against temporal fields.
func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Numeric converts an int64 or float64 value to float64.
func Numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
