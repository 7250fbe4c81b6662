// Package report provides renderers for transformation reports.
// A report summarizes the edits the AMP pipeline made to one document:
// scripts stripped, stylesheets inlined, images rewritten. This file
// implements the Markdown renderer.
package report

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/ampify/core"
)

// MarkdownRenderer renders a transform report as a Markdown document.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render builds the Markdown report.
func (r *MarkdownRenderer) Render(report core.TransformReport) ([]byte, error) {
	var b strings.Builder

	title := report.Title
	if title == "" {
		title = report.CanonicalPath
	}
	fmt.Fprintf(&b, "# AMP transform report: %s\n\n", title)
	fmt.Fprintf(&b, "- Canonical path: `%s`\n", report.CanonicalPath)
	fmt.Fprintf(&b, "- Transformed at: %s\n", report.TransformedAt)
	fmt.Fprintf(&b, "- Scripts removed: %d\n", report.ScriptsRemoved)
	fmt.Fprintf(&b, "- Stylesheets inlined: %d\n", len(report.Stylesheets))
	fmt.Fprintf(&b, "- Images rewritten: %d\n\n", len(report.Images))

	if len(report.Stylesheets) > 0 {
		b.WriteString("## Stylesheets\n\n")
		for _, s := range report.Stylesheets {
			fmt.Fprintf(&b, "- `%s` (%d bytes inlined)\n", s.Href, s.Bytes)
		}
		b.WriteString("\n")
	}

	if len(report.Images) > 0 {
		b.WriteString("## Images\n\n")
		b.WriteString("| src | layout | width | height | probed |\n")
		b.WriteString("|-----|--------|-------|--------|--------|\n")
		for _, img := range report.Images {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %v |\n",
				img.Src, img.Layout, img.Width, img.Height, img.Probed)
		}
		b.WriteString("\n")
	}

	if report.Preview != "" {
		b.WriteString("## Content preview\n\n")
		b.WriteString(report.Preview)
		b.WriteString("\n")
	}

	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}
