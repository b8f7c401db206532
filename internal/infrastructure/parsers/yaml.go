package parsers

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLParser reads fixtures from a YAML sequence of records.
type YAMLParser struct{}

// Parse reads YAML from the reader and returns the fixture records.
func (p *YAMLParser) Parse(r io.Reader) ([]RawRecord, error) {
	var records []RawRecord

	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&records); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	for i := range records {
		records[i].LineNum = i + 1
	}

	return records, nil
}

// YAMLWriter serializes fixture records as a YAML sequence.
type YAMLWriter struct{}

// Write writes the records to w.
func (wr *YAMLWriter) Write(w io.Writer, records []RawRecord) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("writing YAML: %w", err)
	}
	return encoder.Close()
}
