// Package fetch implements the Fetcher interface.
// It retrieves canonical (non-AMP) pages so the pipeline can rewrite them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gaurav-prasanna/ampify/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "ampify/1.0 (+https://github.com/gaurav-prasanna/ampify)"

	// maxBodyBytes bounds how much of a response we read. HTML documents
	// beyond this size are not realistic transformation targets.
	maxBodyBytes = 10 * 1024 * 1024
)

// HTTPFetcher fetches web pages via HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// New creates an HTTPFetcher with a sensible timeout.
func New() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// NewWithClient creates an HTTPFetcher using the given client.
func NewWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch retrieves the content of the given URL. A non-2xx response is not an
// error: the status code, headers, and body are returned as-is so callers
// can decide whether to transform or pass the response through unchanged.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &core.FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		HTML:       string(body),
	}, nil
}
