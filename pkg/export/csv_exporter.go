package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is the tabular half of a case export: one header row plus the
// grade rows keyed by header name.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders case snapshots into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV bytes for the dataset alone.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	return e.RenderReport(nil, data)
}

// RenderReport writes the case facts as key/value lines, a separator row,
// then the grade table. Facts may be nil for a bare table.
func (e *CSVExporter) RenderReport(facts [][2]string, data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	for _, fact := range facts {
		if err := writer.Write([]string{fact[0], fact[1]}); err != nil {
			return nil, fmt.Errorf("write csv fact: %w", err)
		}
	}
	if len(facts) > 0 {
		if err := writer.Write([]string{}); err != nil {
			return nil, fmt.Errorf("write csv separator: %w", err)
		}
	}

	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
