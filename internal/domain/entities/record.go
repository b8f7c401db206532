package entities

import (
	"maps"
	"time"
)

// Record is one stored instance of an entity definition. ID is a surrogate
// key, unique within the entity for the lifetime of the store.
type Record struct {
	ID        string         `json:"id"`
	Entity    string         `json:"entity"`
	Values    map[string]any `json:"values"`
	CreatedAt time.Time      `json:"created_at,omitzero"`
	UpdatedAt time.Time      `json:"updated_at,omitzero"`
}

// Get returns the value of a field, or nil when unset.
func (r *Record) Get(field string) any {
	if r.Values == nil {
		return nil
	}
	return r.Values[field]
}

// Set assigns a field value in place.
func (r *Record) Set(field string, value any) {
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	r.Values[field] = value
}

// Clone returns a copy whose value map is independent of the original.
// Nested JSON values are shared; callers treat them as immutable.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Values = maps.Clone(r.Values)
	return &c
}
