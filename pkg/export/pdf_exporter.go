package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a rota grid as a landscape table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a title, one column per day and two lines per slot.
func (e *PDFExporter) Render(grid Grid, title string) ([]byte, error) {
	if len(grid.Days) == 0 {
		return nil, fmt.Errorf("pdf requires at least one day")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	const labelWidth = 20.0
	colWidth := (277.0 - labelWidth) / float64(len(grid.Days))

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(labelWidth, 8, "Slot", "1", 0, "C", false, 0, "")
	for day := range grid.Days {
		pdf.CellFormat(colWidth, 8, fmt.Sprintf("Day %d", day+1), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i, row := range grid.Rows(false) {
		label, border := "", "LR"
		if i%2 == 0 {
			label, border = fmt.Sprintf("%d", i/2+1), "LRT"
		} else {
			border = "LRB"
		}
		pdf.CellFormat(labelWidth, 7, label, border, 0, "C", false, 0, "")
		for _, name := range row {
			pdf.CellFormat(colWidth, 7, name, border, 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
