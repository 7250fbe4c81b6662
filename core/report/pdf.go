// Package report — PDF renderer.
// Renders the transform report as a printable PDF using gofpdf.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/ampify/core"
)

// PDFRenderer renders a transform report as a PDF document.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render builds the PDF report.
func (r *PDFRenderer) Render(report core.TransformReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	title := report.Title
	if title == "" {
		title = report.CanonicalPath
	}
	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, "AMP transform report: "+title, "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, "Canonical: "+report.CanonicalPath+" ("+report.TransformedAt+")", "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, fmt.Sprintf("Scripts removed: %d", report.ScriptsRemoved), "", "L", false)
	pdf.MultiCell(0, 6, fmt.Sprintf("Stylesheets inlined: %d", len(report.Stylesheets)), "", "L", false)
	pdf.MultiCell(0, 6, fmt.Sprintf("Images rewritten: %d", len(report.Images)), "", "L", false)
	pdf.Ln(4)

	if len(report.Stylesheets) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, "Stylesheets", "", "L", false)
		pdf.SetFont("Courier", "", 9)
		for _, s := range report.Stylesheets {
			pdf.MultiCell(0, 5, fmt.Sprintf("%s (%d bytes)", s.Href, s.Bytes), "", "L", false)
		}
		pdf.Ln(3)
	}

	if len(report.Images) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, "Images", "", "L", false)
		pdf.SetFont("Courier", "", 9)
		for _, img := range report.Images {
			probed := ""
			if img.Probed {
				probed = " (probed)"
			}
			pdf.MultiCell(0, 5, fmt.Sprintf("%s layout=%s %sx%s%s",
				img.Src, img.Layout, img.Width, img.Height, probed), "", "L", false)
		}
		pdf.Ln(3)
	}

	if report.Preview != "" {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, "Content preview", "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range strings.Split(report.Preview, "\n") {
			pdf.MultiCell(0, 5, line, "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}
