package entities

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// FieldType identifies the semantic type of a field value.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldText     FieldType = "text"
	FieldInt      FieldType = "int"
	FieldFloat    FieldType = "float"
	FieldBool     FieldType = "bool"
	FieldDate     FieldType = "date"
	FieldDateTime FieldType = "datetime"
	FieldJSON     FieldType = "json"
)

// dateLayout is the wire format for date values in fixtures and snapshots.
const dateLayout = "2006-01-02"

// Field describes a single typed column of an entity definition.
type Field struct {
	Name      string    `yaml:"name" json:"name"`
	Type      FieldType `yaml:"type" json:"type"`
	Required  bool      `yaml:"required,omitempty" json:"required,omitempty"`
	Unique    bool      `yaml:"unique,omitempty" json:"unique,omitempty"`
	MaxLength int       `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	Default   any       `yaml:"default,omitempty" json:"default,omitempty"`
	Choices   []any     `yaml:"choices,omitempty" json:"choices,omitempty"`
	// Ref names the entity this field references. Set for the holding side
	// of a many-to-one relationship; the value is the target record's ID.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// IsValidType reports whether t is a known field type.
func IsValidType(t FieldType) bool {
	switch t {
	case FieldString, FieldText, FieldInt, FieldFloat, FieldBool, FieldDate, FieldDateTime, FieldJSON:
		return true
	}
	return false
}

// Normalize coerces a raw value into the field's canonical in-memory type
// (string, int64, float64, bool, time.Time, or arbitrary JSON). String
// inputs are parsed for numeric, boolean and temporal fields so that
// line-oriented fixture formats can carry every type.
func (f Field) Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch f.Type {
	case FieldString, FieldText:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return s, nil

	case FieldInt:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("expected integer, got %v", v)
			}
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid integer %q", v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected integer, got %T", value)

	case FieldFloat:
		switch v := value.(type) {
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case float64:
			return v, nil
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected number, got %T", value)

	case FieldBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("invalid boolean %q", v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected boolean, got %T", value)

	case FieldDate:
		switch v := value.(type) {
		case time.Time:
			return v.Truncate(24 * time.Hour), nil
		case string:
			v = strings.TrimSpace(v)
			if t, err := time.Parse(dateLayout, v); err == nil {
				return t, nil
			}
			// Round-tripped values come back in RFC 3339.
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t.Truncate(24 * time.Hour), nil
			}
			return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", v)
		}
		return nil, fmt.Errorf("expected date, got %T", value)

	case FieldDateTime:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("invalid datetime %q (want RFC 3339)", v)
			}
			return t, nil
		}
		return nil, fmt.Errorf("expected datetime, got %T", value)

	case FieldJSON:
		return value, nil
	}

	return nil, fmt.Errorf("unknown field type %q", f.Type)
}

// Check validates an already-normalized value against the field's
// constraints. It does not enforce uniqueness; that requires store access.
func (f Field) Check(value any) error {
	if value == nil {
		if f.Required {
			return fmt.Errorf("value is required")
		}
		return nil
	}

	if f.MaxLength > 0 {
		if s, ok := value.(string); ok && len(s) > f.MaxLength {
			return fmt.Errorf("length %d exceeds maximum %d", len(s), f.MaxLength)
		}
	}

	if len(f.Choices) > 0 {
		for _, c := range f.Choices {
			normalized, err := f.Normalize(c)
			if err != nil {
				continue
			}
			if ValueEqual(normalized, value) {
				return nil
			}
		}
		return fmt.Errorf("value %v is not one of the declared choices", value)
	}

	return nil
}

// ValueEqual compares two normalized field values. Numeric values compare
// across int64 and float64 representations; uncomparable values such as
// decoded JSON maps and slices compare by deep equality.
func ValueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		return bok && at.Equal(bt)
	}

	an, aok := numeric(a)
	bn, bok := numeric(b)
	if aok && bok {
		return an == bn
	}

	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

// numeric converts int64 or float64 to float64 for comparison.
func numeric(v any) (float64, bool) {
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
