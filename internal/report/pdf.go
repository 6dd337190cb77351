package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry in millimetres (A4 portrait)
const (
	pageMarginX   = 15.0
	pageMarginTop = 20.0
	labelWidth    = 55.0
	chartWidth    = 125.0
	chartTop      = 35.0
	chartMaxH     = 230.0
	maxBarHeight  = 8.0
	barGap        = 0.2 // fraction of a row left blank between bars
)

// WritePDF renders one horizontal bar chart page per report.
// The x-axis is fixed to [0,1] so charts are comparable between stages.
func WritePDF(w io.Writer, reports ...MissingValues) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Missing values", false)

	for _, m := range reports {
		drawMissingPage(pdf, m)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render missing-value report: %w", err)
	}
	return nil
}

// SavePDF writes each report to dir as missing-<dataset>-<stage>.pdf and returns the paths
func SavePDF(dir string, reports ...MissingValues) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	paths := make([]string, 0, len(reports))
	for _, m := range reports {
		path := filepath.Join(dir, FileName(m))
		file, err := os.Create(path)
		if err != nil {
			return paths, fmt.Errorf("failed to create %s: %w", path, err)
		}
		err = WritePDF(file, m)
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// FileName returns the file name used for a saved report
func FileName(m MissingValues) string {
	return strings.ToLower(fmt.Sprintf("missing-%s-%s.pdf", m.Dataset, m.Stage))
}

func drawMissingPage(pdf *gofpdf.Fpdf, m MissingValues) {
	pdf.AddPage()

	// Title
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(pageMarginX, pageMarginTop)
	pdf.CellFormat(labelWidth+chartWidth, 10, m.Title(), "", 1, "C", false, 0, "")

	chartLeft := pageMarginX + labelWidth
	n := len(m.Columns)
	if n == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Text(chartLeft, chartTop+10, "no columns")
		return
	}

	rowHeight := chartMaxH / float64(n)
	if rowHeight > maxBarHeight {
		rowHeight = maxBarHeight
	}
	chartHeight := rowHeight * float64(n)

	// Bars, darkest for the most missing column
	fontSize := rowHeight * 2.2
	if fontSize > 9 {
		fontSize = 9
	}
	pdf.SetFont("Helvetica", "", fontSize)
	for i, col := range m.Columns {
		y := chartTop + float64(i)*rowHeight
		r, g, b := barColor(i, n)
		pdf.SetFillColor(r, g, b)
		width := clamp01(col.Fraction) * chartWidth
		if width > 0 {
			pdf.Rect(chartLeft, y+rowHeight*barGap/2, width, rowHeight*(1-barGap), "F")
		}
		pdf.SetXY(pageMarginX, y)
		pdf.CellFormat(labelWidth-2, rowHeight, col.Column, "", 0, "R", false, 0, "")
	}

	// Axis with ticks every 0.2
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	axisY := chartTop + chartHeight
	pdf.Line(chartLeft, chartTop, chartLeft, axisY)
	pdf.Line(chartLeft, axisY, chartLeft+chartWidth, axisY)
	pdf.SetFont("Helvetica", "", 8)
	for tick := 0; tick <= 5; tick++ {
		value := float64(tick) / 5
		x := chartLeft + value*chartWidth
		pdf.Line(x, axisY, x, axisY+1.5)
		pdf.SetXY(x-5, axisY+2)
		pdf.CellFormat(10, 4, fmt.Sprintf("%.1f", value), "", 0, "C", false, 0, "")
	}
}

// barColor walks a blue ramp from dark (first bar) to light (last bar)
func barColor(i, n int) (int, int, int) {
	dark := [3]float64{8, 48, 107}
	light := [3]float64{198, 219, 239}
	t := 0.0
	if n > 1 {
		t = float64(i) / float64(n-1)
	}
	return int(dark[0] + t*(light[0]-dark[0])),
		int(dark[1] + t*(light[1]-dark[1])),
		int(dark[2] + t*(light[2]-dark[2]))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
