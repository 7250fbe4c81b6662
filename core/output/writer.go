// Package output handles file naming and writing for converted AMP pages.
// Single-page conversions get a flat filename derived from the source
// (example_com_docs.amp.html); site mirrors reproduce the URL path structure
// under the output directory.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// AMPExtension is the suffix for converted pages.
const AMPExtension = ".amp.html"

// Writer writes converted pages and reports to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// WritePage writes a converted page with a flat filename derived from the
// source URL or file path. Example: https://example.com/docs → example_com_docs.amp.html.
func (w *Writer) WritePage(source string, data []byte) (string, error) {
	return w.write(filepath.Join(w.OutputDir, flatName(source)+AMPExtension), data)
}

// WriteMirrored writes a converted page mirroring the URL path structure.
// Example: https://site.com/docs/intro → <out>/docs/intro.amp.html.
func (w *Writer) WriteMirrored(rawURL string, data []byte) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	urlPath := strings.TrimSuffix(parsed.Path, "/")
	if urlPath == "" || urlPath == "/" {
		urlPath = "/index"
	}
	urlPath = strings.TrimPrefix(urlPath, "/")

	full := filepath.Join(w.OutputDir, urlPath+AMPExtension)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(full), err)
	}
	return w.write(full, data)
}

// WriteReport writes a rendered transform report next to the converted page,
// using the renderer's extension.
func (w *Writer) WriteReport(source string, data []byte, ext string) (string, error) {
	return w.write(filepath.Join(w.OutputDir, flatName(source)+".report"+ext), data)
}

func (w *Writer) write(path string, data []byte) (string, error) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// flatName converts a source URL or file path into a flat filename.
// Example: https://example.com/docs/intro → example_com_docs_intro.
func flatName(source string) string {
	parsed, err := url.Parse(source)
	if err != nil || parsed.Host == "" {
		// Local file: use the base name without its extension.
		base := filepath.Base(source)
		return sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
	}

	parts := []string{sanitize(parsed.Host)}
	for _, seg := range strings.Split(strings.Trim(parsed.Path, "/"), "/") {
		if seg != "" {
			parts = append(parts, sanitize(seg))
		}
	}
	return strings.Join(parts, "_")
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
