package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders a rota grid as headerless CSV.
type CSVExporter struct {
	repeat bool
}

// NewCSVExporter builds a CSV exporter. repeat duplicates every row pair.
func NewCSVExporter(repeat bool) *CSVExporter {
	return &CSVExporter{repeat: repeat}
}

// Render produces CSV encoded bytes for the grid.
func (e *CSVExporter) Render(grid Grid) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for _, row := range grid.Rows(e.repeat) {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
