// Package amp implements the HTML → AMP transformation pipeline.
// It rewrites a standard HTML document into an AMP-compliant variant by:
//  1. Normalizing document metadata (amp root attribute, canonical link,
//     charset and viewport metas)
//  2. Stripping disallowed script elements
//  3. Injecting the AMP runtime and the mandatory boilerplate styles
//  4. Inlining local stylesheets and replacing <img> with <amp-img>
//
// The stages run in a fixed order on a single document tree; several of
// them depend on an earlier stage having run (the script filter must run
// before the runtime script is injected, the viewport meta is positioned
// relative to the charset meta). Transform is the only entry point callers
// need; the stage functions are exported so each edit can be tested in
// isolation.
package amp

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/ampify/core"
)

const (
	// runtimeSrc is the AMP runtime script every valid AMP page must load.
	runtimeSrc = "https://cdn.ampproject.org/v0.js"

	// viewportContent is the viewport value AMP requires.
	viewportContent = "width=device-width,minimum-scale=1,initial-scale=1"

	// defaultLayout is applied to rewritten images that carry no layout
	// attribute of their own.
	defaultLayout = "responsive"
)

// scriptTypesAllowed lists the script type attributes that may remain in an
// AMP document. Scripts with any other type, or with no type at all, are
// removed.
var scriptTypesAllowed = map[string]bool{
	"application/json":    true,
	"application/ld+json": true,
}

// ParseError reports input that could not be parsed as an HTML document at
// all. It is the only fatal error the pipeline itself produces; resolver
// errors pass through unwrapped.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parsing document: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Transformer runs the transformation pipeline. Resolver and Prober may be
// nil, in which case stylesheet inlining degrades to empty styles and image
// dimension backfill degrades to zero values.
type Transformer struct {
	Resolver core.AssetResolver
	Prober   core.ImageProber
}

// New creates a Transformer with the given collaborators.
func New(resolver core.AssetResolver, prober core.ImageProber) *Transformer {
	return &Transformer{Resolver: resolver, Prober: prober}
}

// Transform parses rawHTML, applies the pipeline stages in order, and
// returns the serialized AMP document. canonicalPath is embedded verbatim
// into the canonical link. It is a single-pass, synchronous function: the
// only blocking work is the stylesheet reads and image probes, and ctx is
// handed to the prober so callers can bound them.
func (t *Transformer) Transform(ctx context.Context, rawHTML []byte, canonicalPath string) (string, error) {
	out, _, err := t.TransformWithReport(ctx, rawHTML, canonicalPath)
	return out, err
}

// TransformWithReport is Transform plus a summary of the edits performed,
// for callers that surface transformation reports.
func (t *Transformer) TransformWithReport(ctx context.Context, rawHTML []byte, canonicalPath string) (string, *core.TransformReport, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return "", nil, &ParseError{Err: err}
	}

	report := &core.TransformReport{
		CanonicalPath: canonicalPath,
		TransformedAt: time.Now().UTC().Format(time.RFC3339),
	}

	MarkAmpRoot(doc)
	InsertCanonicalLink(doc, canonicalPath)
	report.ScriptsRemoved = ExcludeDisallowedScripts(doc)
	InsertAmpRuntime(doc)
	EnsureCharsetMeta(doc)
	SetViewportMeta(doc)

	report.Stylesheets, err = t.InlineStylesheets(doc)
	if err != nil {
		return "", nil, err
	}

	InsertBoilerplate(doc)
	report.Images = t.RewriteImages(ctx, doc)

	report.Title = strings.TrimSpace(doc.Find("title").First().Text())
	report.Preview = bodyPreview(doc)

	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", nil, fmt.Errorf("serializing document: %w", err)
	}
	return out, report, nil
}

// MarkAmpRoot sets the empty amp attribute on the html element. Setting the
// same attribute twice is a no-op, so the stage is idempotent.
func MarkAmpRoot(doc *goquery.Document) {
	doc.Find("html").SetAttr("amp", "")
}

// InsertCanonicalLink appends a link[rel=canonical] pointing at the source
// page to head. This is an append, not an upsert: the orchestrator runs it
// exactly once per document, and running it again produces a second link.
func InsertCanonicalLink(doc *goquery.Document, canonicalPath string) {
	link := newElement("link",
		html.Attribute{Key: "rel", Val: "canonical"},
		html.Attribute{Key: "href", Val: canonicalPath},
	)
	doc.Find("head").AppendNodes(link)
}

// ExcludeDisallowedScripts removes every script element whose type is not
// exactly application/json or application/ld+json; scripts with no type are
// removed too. It must run before InsertAmpRuntime so the runtime script is
// never itself filtered. Returns the number of scripts removed.
func ExcludeDisallowedScripts(doc *goquery.Document) int {
	removed := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !scriptTypesAllowed[typ] {
			s.Remove()
			removed++
		}
	})
	return removed
}

// InsertAmpRuntime appends the async AMP runtime script to head.
func InsertAmpRuntime(doc *goquery.Document) {
	script := newElement("script",
		html.Attribute{Key: "async", Val: ""},
		html.Attribute{Key: "src", Val: runtimeSrc},
	)
	doc.Find("head").AppendNodes(script)
}

// EnsureCharsetMeta inserts meta[charset=utf-8] as the first child of head
// unless a meta with charset exactly "utf-8" already exists anywhere in the
// document. The existence check is an exact string match: a document
// declaring charset "UTF-8" fails it and ends up with a second, conflicting
// meta. That matches the historical behavior of this pipeline and is kept
// deliberately; see DESIGN.md before changing it.
func EnsureCharsetMeta(doc *goquery.Document) {
	found := false
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("charset"); ok && v == "utf-8" {
			found = true
			return false
		}
		return true
	})
	if found {
		return
	}
	meta := newElement("meta", html.Attribute{Key: "charset", Val: "utf-8"})
	doc.Find("head").PrependNodes(meta)
}

// SetViewportMeta forces the AMP-required viewport value. An existing
// meta[name=viewport] is overwritten in place; otherwise a new one is
// inserted as the second child of head, right after the charset meta that
// EnsureCharsetMeta established.
func SetViewportMeta(doc *goquery.Document) {
	existing := doc.Find(`meta[name=viewport]`)
	if existing.Length() > 0 {
		existing.SetAttr("content", viewportContent)
		return
	}

	meta := newElement("meta",
		html.Attribute{Key: "name", Val: "viewport"},
		html.Attribute{Key: "content", Val: viewportContent},
	)
	head := doc.Find("head")
	if head.Length() == 0 {
		return
	}
	h := head.Get(0)
	if h.FirstChild == nil {
		h.AppendChild(meta)
		return
	}
	// InsertBefore with a nil reference appends, which is what we want
	// when head has exactly one child.
	h.InsertBefore(meta, h.FirstChild.NextSibling)
}

// InlineStylesheets replaces every link[rel=stylesheet] with a
// style[amp-custom] appended to head, one per link, in document order. The
// CSS text comes from the resolver; hrefs the resolver does not recognize
// degrade silently to an empty style rather than aborting the pipeline. A
// read failure on a recognized asset is fatal — it means a deployment
// problem, not a transient condition.
func (t *Transformer) InlineStylesheets(doc *goquery.Document) ([]core.StylesheetInline, error) {
	head := doc.Find("head")
	var inlined []core.StylesheetInline
	var resolveErr error

	doc.Find(`link[rel=stylesheet]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")

		var css string
		if t.Resolver != nil {
			css, resolveErr = t.Resolver.Resolve(href)
			if resolveErr != nil {
				return false
			}
		}

		s.Remove()
		style := newElement("style", html.Attribute{Key: "amp-custom", Val: ""})
		style.AppendChild(textNode(css))
		head.AppendNodes(style)

		inlined = append(inlined, core.StylesheetInline{Href: href, Bytes: len(css)})
		return true
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return inlined, nil
}

// InsertBoilerplate appends the two mandatory AMP boilerplate style blocks
// to head: the anti-flicker styles, then their noscript override.
func InsertBoilerplate(doc *goquery.Document) {
	head := doc.Find("head")

	style := newElement("style", html.Attribute{Key: "amp-boilerplate", Val: ""})
	style.AppendChild(textNode(boilerplateCSS))
	head.AppendNodes(style)

	noscriptStyle := newElement("style", html.Attribute{Key: "amp-boilerplate", Val: ""})
	noscriptStyle.AppendChild(textNode(boilerplateNoscriptCSS))
	noscript := newElement("noscript")
	noscript.AppendChild(noscriptStyle)
	head.AppendNodes(noscript)
}

// RewriteImages replaces every img element with an amp-img carrying the same
// attributes. Images without a layout get "responsive". Missing or
// percentage-valued dimensions are backfilled from the prober; probe
// failures write the (0, 0) sentinel rather than omitting the attributes.
func (t *Transformer) RewriteImages(ctx context.Context, doc *goquery.Document) []core.ImageRewrite {
	var rewrites []core.ImageRewrite

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		orig := s.Get(0)

		img := newElement("amp-img", append([]html.Attribute(nil), orig.Attr...)...)
		if _, ok := nodeAttr(img, "layout"); !ok {
			setNodeAttr(img, "layout", defaultLayout)
		}

		src, hasSrc := nodeAttr(img, "src")
		probed := false
		if needsDimensions(img) && hasSrc {
			var w, h int
			if t.Prober != nil {
				w, h = t.Prober.Probe(ctx, src)
			}
			setNodeAttr(img, "width", strconv.Itoa(w))
			setNodeAttr(img, "height", strconv.Itoa(h))
			probed = true
		}

		s.ReplaceWithNodes(img)

		layout, _ := nodeAttr(img, "layout")
		width, _ := nodeAttr(img, "width")
		height, _ := nodeAttr(img, "height")
		rewrites = append(rewrites, core.ImageRewrite{
			Src:    src,
			Layout: layout,
			Width:  width,
			Height: height,
			Probed: probed,
		})
	})
	return rewrites
}

// needsDimensions reports whether an image needs its width and height
// backfilled: either is absent, or either is a percentage value. AMP
// requires explicit pixel dimensions for layout computation.
func needsDimensions(n *html.Node) bool {
	for _, key := range []string{"width", "height"} {
		v, ok := nodeAttr(n, key)
		if !ok || strings.HasSuffix(v, "%") {
			return true
		}
	}
	return false
}

// bodyPreview converts the transformed body to Markdown for the transform
// report. Best effort: any conversion problem just leaves the preview empty.
func bodyPreview(doc *goquery.Document) string {
	bodyHTML, err := doc.Find("body").Html()
	if err != nil {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(bodyHTML)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}
