// Package assets implements the AssetResolver interface for locally served
// static files. A stylesheet href is recognized when it starts with the
// configured URL prefix; everything else (third-party CDNs, absolute URLs to
// other hosts) is unsupported and resolves to the empty string.
package assets

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ReadError reports a stylesheet href that was recognized as a local static
// asset but could not be read. Unlike an unrecognized href this is not a
// silent degradation: the reference resolved, so the file should exist, and
// a failed read points at a deployment defect.
type ReadError struct {
	Href string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("reading asset %s: %v", e.Href, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// StaticResolver resolves hrefs under a URL prefix to files under a root
// directory. The prefix-to-directory mapping is explicit configuration, not
// ambient state.
type StaticResolver struct {
	urlPrefix string // e.g. "/static/"
	root      string // filesystem directory backing the prefix
}

// New creates a StaticResolver mapping urlPrefix to the root directory.
// The prefix is normalized to carry a trailing slash so that "/static"
// and "/static/" behave identically.
func New(urlPrefix, root string) *StaticResolver {
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &StaticResolver{urlPrefix: urlPrefix, root: root}
}

// Resolve returns the CSS text for a recognized static asset href, or the
// empty string for anything it does not serve. The relative part is cleaned
// as a rooted path, so .. segments cannot escape the root directory.
func (r *StaticResolver) Resolve(href string) (string, error) {
	if !strings.HasPrefix(href, r.urlPrefix) {
		return "", nil
	}

	rel := path.Clean("/" + strings.TrimPrefix(href, r.urlPrefix))
	if rel == "/" {
		return "", nil
	}

	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", &ReadError{Href: href, Err: err}
	}
	return string(data), nil
}
