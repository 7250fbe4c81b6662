// Package core defines the collaborator interfaces for the ampify pipeline.
// Each external dependency of a transformation stage is a clean, testable interface.
package core

import "context"

// FetchResult holds the raw HTML and response metadata from a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	Header     map[string][]string
	HTML       string
}

// AssetResolver maps a stylesheet href to its literal CSS text.
// Resolve returns the empty string (and no error) when the href is not a
// recognized local static asset — third-party and absolute stylesheet URLs
// are unsupported on purpose. An error is returned only when the href was
// recognized but the underlying read failed.
type AssetResolver interface {
	Resolve(href string) (string, error)
}

// ImageProber determines an image's intrinsic pixel dimensions from its
// source URI. Probe never fails: any fetch or decode problem degrades to
// (0, 0), which callers write out verbatim.
type ImageProber interface {
	Probe(ctx context.Context, uri string) (width, height int)
}

// Fetcher retrieves raw HTML from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// StylesheetInline records one inlined stylesheet in a transform report.
type StylesheetInline struct {
	Href  string `json:"href"`
	Bytes int    `json:"bytes"` // resolved CSS size; 0 for unsupported hrefs
}

// ImageRewrite records one img → amp-img replacement in a transform report.
type ImageRewrite struct {
	Src    string `json:"src"`
	Layout string `json:"layout"`
	Width  string `json:"width"`
	Height string `json:"height"`
	Probed bool   `json:"probed"` // true when dimensions came from the prober
}

// TransformReport summarizes what the pipeline did to one document.
type TransformReport struct {
	CanonicalPath  string             `json:"canonical_path"`
	Title          string             `json:"title"`
	ScriptsRemoved int                `json:"scripts_removed"`
	Stylesheets    []StylesheetInline `json:"stylesheets"`
	Images         []ImageRewrite     `json:"images"`
	Preview        string             `json:"preview,omitempty"` // Markdown excerpt of the final body
	TransformedAt  string             `json:"transformed_at"`    // ISO8601
}

// Renderer converts a TransformReport into a final output format.
type Renderer interface {
	Render(report TransformReport) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
