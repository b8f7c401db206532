package entities

import "strings"

// OrderKey is one key of a default or explicit ordering. Desc keys sort
// descending; ties fall through to later keys.
type OrderKey struct {
	Field string
	Desc  bool
}

// ParseOrderKey parses the "-field" shorthand used by fixtures and the CLI.
func ParseOrderKey(s string) OrderKey {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return OrderKey{Field: s[1:], Desc: true}
	}
	return OrderKey{Field: s}
}

// ParseOrderKeys parses a list of "-field" shorthands.
func ParseOrderKeys(keys []string) []OrderKey {
	if len(keys) == 0 {
		return nil
	}
	parsed := make([]OrderKey, 0, len(keys))
	for _, k := range keys {
		parsed = append(parsed, ParseOrderKey(k))
	}
	return parsed
}

// AbstractBase is a reusable field-set shared by several entity definitions.
// It contributes fields and a default ordering but is never storable itself.
type AbstractBase struct {
	Name     string
	Fields   []Field
	Ordering []OrderKey
}

// EntityDef declares a storable entity: its name, typed fields, default
// ordering and lifecycle options. Definitions are immutable once the
// registry is frozen.
type EntityDef struct {
	Name     string
	Fields   []Field
	Ordering []OrderKey
	// Timestamps adds created/modified lifecycle stamps to every record.
	Timestamps bool
	// Base names an abstract base whose fields are prepended at Define time.
	Base string
	// Extends names a parent entity for one-to-one table extension. Child
	// records share the parent record's identity.
	Extends string

	fieldIndex map[string]int
}

// Field looks up a field by name.
func (d *EntityDef) Field(name string) (*Field, bool) {
	if d.fieldIndex == nil {
		d.reindex()
	}
	i, ok := d.fieldIndex[name]
	if !ok {
		return nil, false
	}
	return &d.Fields[i], true
}

// FieldNames returns field names in declaration order.
func (d *EntityDef) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

func (d *EntityDef) reindex() {
	d.fieldIndex = make(map[string]int, len(d.Fields))
	for i, f := range d.Fields {
		d.fieldIndex[f.Name] = i
	}
}

// applyBase prepends the base's fields and inherits its ordering when the
// entity declares none of its own.
func (d *EntityDef) applyBase(base AbstractBase) {
	merged := make([]Field, 0, len(base.Fields)+len(d.Fields))
	merged = append(merged, base.Fields...)
	merged = append(merged, d.Fields...)
	d.Fields = merged
	if len(d.Ordering) == 0 {
		d.Ordering = append([]OrderKey(nil), base.Ordering...)
	}
	d.reindex()
}
