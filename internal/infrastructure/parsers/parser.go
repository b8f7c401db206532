// Package parsers reads and writes fixture files in their supported
// serializations. All formats carry identical semantics: an ordered
// sequence of records, each tagged with its target entity, an optional
// explicit identity, an optional natural key, and a field-value mapping.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawRecord is one fixture entry before validation against the schema.
type RawRecord struct {
	Entity     string         `json:"entity" yaml:"entity"`
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
	NaturalKey []string       `json:"natural_key,omitempty" yaml:"natural_key,omitempty"`
	Values     map[string]any `json:"values" yaml:"values"`
	// LineNum is the record's position in the source file (1-indexed),
	// set by the parser for error reporting.
	LineNum int `json:"-" yaml:"-"`
}

// Parser reads fixture records from a serialized form.
type Parser interface {
	Parse(r io.Reader) ([]RawRecord, error)
}

// Writer serializes fixture records for dumping.
type Writer interface {
	Write(w io.Writer, records []RawRecord) error
}

// ForFormat returns the parser for an explicit format name.
// Supported formats: "json", "yaml", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "yaml", "yml":
		return &YAMLParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the parser matching a file's extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".yaml", ".yml":
		return &YAMLParser{}
	case ".csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// WriterForFormat returns the writer for a format name. fields fixes the
// column order for the CSV writer; the structured formats ignore it.
func WriterForFormat(format string, fields []string) Writer {
	switch strings.ToLower(format) {
	case "json":
		return &JSONWriter{}
	case "yaml", "yml":
		return &YAMLWriter{}
	case "csv":
		return &CSVWriter{Fields: fields}
	default:
		return nil
	}
}
