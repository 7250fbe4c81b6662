// Package imgprobe implements the ImageProber interface over HTTP.
// It reads just enough of an image resource to decode its intrinsic pixel
// dimensions from the header, then abandons the rest of the body. All
// failure modes — bad URI, fetch error, unknown format, truncated header —
// degrade to the (0, 0) sentinel; the prober never returns an error.
package imgprobe

import (
	"bufio"
	"context"
	"image"
	"io"
	"net/http"
	"net/url"
	"time"

	// Registered decoders. DecodeConfig picks the right one from the
	// header magic and only consumes header bytes.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	defaultTimeout = 10 * time.Second

	// maxHeaderBytes caps how much of the resource we are willing to read
	// while looking for dimensions. Image headers live in the first few KB;
	// JPEGs with large embedded thumbnails are the worst case.
	maxHeaderBytes = 256 * 1024

	defaultUserAgent = "ampify/1.0 (+https://github.com/gaurav-prasanna/ampify)"
)

// HTTPProber probes image dimensions over HTTP. Relative URIs are resolved
// against Base; without a Base, relative URIs are unprobeable and yield
// (0, 0).
type HTTPProber struct {
	client *http.Client
	base   *url.URL
}

// Option configures an HTTPProber.
type Option func(*HTTPProber)

// WithBase sets the base URL used to resolve relative image sources.
// An unparseable base is ignored.
func WithBase(base string) Option {
	return func(p *HTTPProber) {
		if u, err := url.Parse(base); err == nil && u.Scheme != "" {
			p.base = u
		}
	}
}

// WithClient replaces the HTTP client, e.g. to impose a tighter timeout.
func WithClient(client *http.Client) Option {
	return func(p *HTTPProber) {
		p.client = client
	}
}

// New creates an HTTPProber with a sensible timeout.
func New(opts ...Option) *HTTPProber {
	p := &HTTPProber{
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe fetches the resource at uri and returns its intrinsic pixel
// dimensions, or (0, 0) when they cannot be determined. The body is read
// through a buffered, size-capped reader, so only the header portion of the
// image ever crosses the network buffer.
func (p *HTTPProber) Probe(ctx context.Context, uri string) (int, int) {
	target := p.resolve(uri)
	if target == "" {
		return 0, 0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, 0
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, 0
	}

	cfg, _, err := image.DecodeConfig(bufio.NewReader(io.LimitReader(resp.Body, maxHeaderBytes)))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// resolve turns uri into an absolute URL, using the base for relative
// references. Returns "" when no absolute URL can be formed.
func (p *HTTPProber) resolve(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}
	if p.base == nil {
		return ""
	}
	return p.base.ResolveReference(parsed).String()
}
