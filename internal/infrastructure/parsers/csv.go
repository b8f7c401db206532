package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// csvListSeparator separates multiple natural-key fields in one CSV cell.
const csvListSeparator = "|"

// CSVParser reads fixtures from the line-oriented CSV form. The header
// declares the columns: "entity" is required, "id" and "natural_key" are
// optional, every other column names a field. Cell values are strings;
// the schema's field coercion interprets them when the fixture is loaded.
type CSVParser struct{}

// Parse reads CSV from the reader and returns the fixture records.
func (p *CSVParser) Parse(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)

	colIndex, fieldCols, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	var records []RawRecord
	lineNum := 1 // header is line 1

	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		record := RawRecord{
			Entity:  getColumn(row, colIndex, "entity"),
			ID:      getColumn(row, colIndex, "id"),
			Values:  make(map[string]any, len(fieldCols)),
			LineNum: lineNum,
		}
		if record.Entity == "" {
			return nil, fmt.Errorf("line %d: missing entity", lineNum)
		}
		if nk := getColumn(row, colIndex, "natural_key"); nk != "" {
			record.NaturalKey = strings.Split(nk, csvListSeparator)
		}
		for _, col := range fieldCols {
			if value := getColumn(row, colIndex, col); value != "" {
				record.Values[col] = value
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// readHeader reads the header row and splits reserved columns from field
// columns.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, []string, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	var fieldCols []string
	for i, col := range header {
		colIndex[col] = i
		switch col {
		case "entity", "id", "natural_key":
		default:
			fieldCols = append(fieldCols, col)
		}
	}

	if _, ok := colIndex["entity"]; !ok {
		return nil, nil, fmt.Errorf("missing required column: entity")
	}

	return colIndex, fieldCols, nil
}

// getColumn safely retrieves a column value from a row.
func getColumn(row []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(row) {
		return row[idx]
	}
	return ""
}

// CSVWriter serializes fixture records in the line-oriented form. Fields
// fixes the column order; records are expected to share one entity.
type CSVWriter struct {
	Fields []string
}

// Write writes the records to w.
func (wr *CSVWriter) Write(w io.Writer, records []RawRecord) error {
	writer := csv.NewWriter(w)

	header := append([]string{"entity", "id"}, wr.Fields...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, record := range records {
		row := make([]string, 0, len(header))
		row = append(row, record.Entity, record.ID)
		for _, field := range wr.Fields {
			row = append(row, formatCell(record.Values[field]))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// formatCell renders a field value as a CSV cell. Midnight timestamps
// render as bare dates so date fields round-trip.
func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.Equal(v.Truncate(24 * time.Hour)) {
			return v.Format("2006-01-02")
		}
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
