package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a roster into a basic tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a title and the roster table.
func (e *PDFExporter) Render(rows []RosterRow, title string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	// Courses get a wider column than the scalar fields.
	widths := map[string]float64{"name": 50, "age": 20, "courses": 80, "owner": 40}

	pdf.SetFont("Arial", "B", 10)
	for _, header := range rosterHeaders {
		pdf.CellFormat(widths[header], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		pdf.CellFormat(widths["name"], 7, row.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(widths["age"], 7, strconv.Itoa(row.Age), "1", 0, "", false, 0, "")
		pdf.CellFormat(widths["courses"], 7, strings.Join(row.Courses, "; "), "1", 0, "", false, 0, "")
		pdf.CellFormat(widths["owner"], 7, row.Owner, "1", 0, "", false, 0, "")
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
