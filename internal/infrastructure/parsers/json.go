package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser reads fixtures from a JSON array of records.
type JSONParser struct{}

// Parse reads JSON from the reader and returns the fixture records.
func (p *JSONParser) Parse(r io.Reader) ([]RawRecord, error) {
	var records []RawRecord

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	for i := range records {
		records[i].LineNum = i + 1
	}

	return records, nil
}

// JSONWriter serializes fixture records as an indented JSON array.
type JSONWriter struct{}

// Write writes the records to w.
func (wr *JSONWriter) Write(w io.Writer, records []RawRecord) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	return nil
}
