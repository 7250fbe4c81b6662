package amp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// stubResolver maps hrefs to CSS text; unknown hrefs are unsupported.
type stubResolver struct {
	css map[string]string
	err error
}

func (r *stubResolver) Resolve(href string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.css[href], nil
}

// stubProber returns fixed dimensions and counts invocations.
type stubProber struct {
	width  int
	height int
	calls  int
}

func (p *stubProber) Probe(_ context.Context, _ string) (int, int) {
	p.calls++
	return p.width, p.height
}

func parseDoc(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parsing test document: %v", err)
	}
	return doc
}

func TestMarkAmpRoot(t *testing.T) {
	t.Parallel()

	t.Run("sets empty amp attribute on html", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head></head><body></body></html>`)
		MarkAmpRoot(doc)

		v, ok := doc.Find("html").Attr("amp")
		if !ok || v != "" {
			t.Errorf("expected empty amp attribute, got %q (present=%v)", v, ok)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head></head><body></body></html>`)
		MarkAmpRoot(doc)
		MarkAmpRoot(doc)

		if n := doc.Find("html").Length(); n != 1 {
			t.Fatalf("expected one html element, got %d", n)
		}
		if _, ok := doc.Find("html").Attr("amp"); !ok {
			t.Error("amp attribute missing after second application")
		}
	})
}

func TestInsertCanonicalLink(t *testing.T) {
	t.Parallel()

	t.Run("appends link with the given path", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head><title>x</title></head><body></body></html>`)
		InsertCanonicalLink(doc, "/articles/42")

		link := doc.Find(`head link[rel=canonical]`)
		if link.Length() != 1 {
			t.Fatalf("expected one canonical link, got %d", link.Length())
		}
		if href, _ := link.Attr("href"); href != "/articles/42" {
			t.Errorf("got href %q, expected /articles/42", href)
		}
	})

	t.Run("appends rather than upserts", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head></head><body></body></html>`)
		InsertCanonicalLink(doc, "/a")
		InsertCanonicalLink(doc, "/b")

		if n := doc.Find(`head link[rel=canonical]`).Length(); n != 2 {
			t.Errorf("expected two canonical links after two calls, got %d", n)
		}
	})
}

func TestExcludeDisallowedScripts(t *testing.T) {
	t.Parallel()

	t.Run("keeps only json and ld+json scripts", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head>`+
			`<script src="app.js"></script>`+
			`<script type="text/javascript">alert(1)</script>`+
			`<script type="application/json">{}</script>`+
			`<script type="application/ld+json">{}</script>`+
			`</head><body><script>inline()</script></body></html>`)

		removed := ExcludeDisallowedScripts(doc)

		if removed != 3 {
			t.Errorf("got %d removed, expected 3", removed)
		}
		if n := doc.Find("script").Length(); n != 2 {
			t.Fatalf("expected 2 surviving scripts, got %d", n)
		}
		doc.Find("script").Each(func(_ int, s *goquery.Selection) {
			typ, _ := s.Attr("type")
			if typ != "application/json" && typ != "application/ld+json" {
				t.Errorf("surviving script has disallowed type %q", typ)
			}
		})
	})

	t.Run("removes scripts with no type attribute", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head><script>x()</script></head><body></body></html>`)
		ExcludeDisallowedScripts(doc)

		if n := doc.Find("script").Length(); n != 0 {
			t.Errorf("expected no scripts, got %d", n)
		}
	})
}

func TestInsertAmpRuntime(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><head></head><body></body></html>`)
	InsertAmpRuntime(doc)

	script := doc.Find("head script")
	if script.Length() != 1 {
		t.Fatalf("expected one runtime script, got %d", script.Length())
	}
	if src, _ := script.Attr("src"); src != "https://cdn.ampproject.org/v0.js" {
		t.Errorf("got src %q", src)
	}
	if _, ok := script.Attr("async"); !ok {
		t.Error("runtime script missing async attribute")
	}
}

func TestEnsureCharsetMeta(t *testing.T) {
	t.Parallel()

	t.Run("inserts meta as first head child when missing", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head><title>x</title></head><body></body></html>`)
		EnsureCharsetMeta(doc)

		head := doc.Find("head").Get(0)
		first := head.FirstChild
		if first == nil || first.Data != "meta" {
			t.Fatalf("expected meta as first head child, got %+v", first)
		}
		v, _ := doc.Find("head meta").First().Attr("charset")
		if v != "utf-8" {
			t.Errorf("got charset %q, expected utf-8", v)
		}
	})

	t.Run("is a no-op when utf-8 meta exists", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head><title>x</title><meta charset="utf-8"></head><body></body></html>`)
		before := doc.Find("head").Children().Length()
		EnsureCharsetMeta(doc)

		if after := doc.Find("head").Children().Length(); after != before {
			t.Errorf("head child count changed from %d to %d", before, after)
		}
	})

	t.Run("uppercase UTF-8 fails the exact match and gets a duplicate", func(t *testing.T) {
		t.Parallel()

		// Historical behavior kept on purpose: the presence check is an
		// exact string comparison.
		doc := parseDoc(t, `<html><head><meta charset="UTF-8"></head><body></body></html>`)
		EnsureCharsetMeta(doc)

		if n := doc.Find("head meta").Length(); n != 2 {
			t.Errorf("expected duplicate charset meta, got %d metas", n)
		}
	})
}

func TestSetViewportMeta(t *testing.T) {
	t.Parallel()

	const want = "width=device-width,minimum-scale=1,initial-scale=1"

	t.Run("overwrites existing viewport in place", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head><meta name="viewport" content="width=device-width"></head><body></body></html>`)
		SetViewportMeta(doc)

		vp := doc.Find(`meta[name=viewport]`)
		if vp.Length() != 1 {
			t.Fatalf("expected exactly one viewport meta, got %d", vp.Length())
		}
		if content, _ := vp.Attr("content"); content != want {
			t.Errorf("got content %q, expected %q", content, want)
		}
	})

	t.Run("inserts as second head child when missing", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head><meta charset="utf-8"><title>x</title></head><body></body></html>`)
		SetViewportMeta(doc)

		head := doc.Find("head").Get(0)
		second := head.FirstChild.NextSibling
		if second == nil || second.Data != "meta" {
			t.Fatalf("expected viewport meta as second head child")
		}
		var name string
		for _, a := range second.Attr {
			if a.Key == "name" {
				name = a.Val
			}
		}
		if name != "viewport" {
			t.Errorf("second head child is not the viewport meta")
		}
	})

	t.Run("appends when head has a single child", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><head><meta charset="utf-8"></head><body></body></html>`)
		SetViewportMeta(doc)

		if n := doc.Find(`meta[name=viewport]`).Length(); n != 1 {
			t.Fatalf("expected one viewport meta, got %d", n)
		}
	})
}

func TestInlineStylesheets(t *testing.T) {
	t.Parallel()

	t.Run("replaces link with style amp-custom in head", func(t *testing.T) {
		t.Parallel()

		tr := New(&stubResolver{css: map[string]string{"/static/x.css": "body{color:red}"}}, nil)
		doc := parseDoc(t, `<html><head><link rel="stylesheet" href="/static/x.css"></head><body></body></html>`)

		inlined, err := tr.InlineStylesheets(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if n := doc.Find(`link[rel=stylesheet]`).Length(); n != 0 {
			t.Errorf("expected no stylesheet links, got %d", n)
		}
		style := doc.Find("head style")
		if style.Length() != 1 {
			t.Fatalf("expected one style element, got %d", style.Length())
		}
		if _, ok := style.Attr("amp-custom"); !ok {
			t.Error("style missing amp-custom attribute")
		}
		if got := style.Text(); got != "body{color:red}" {
			t.Errorf("got style text %q", got)
		}
		if len(inlined) != 1 || inlined[0].Href != "/static/x.css" || inlined[0].Bytes != len("body{color:red}") {
			t.Errorf("unexpected inline record: %+v", inlined)
		}
	})

	t.Run("unsupported href degrades to empty style", func(t *testing.T) {
		t.Parallel()

		tr := New(&stubResolver{}, nil)
		doc := parseDoc(t, `<html><head><link rel="stylesheet" href="https://cdn.example.com/x.css"></head><body></body></html>`)

		inlined, err := tr.InlineStylesheets(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := doc.Find("head style").Length(); n != 1 {
			t.Fatalf("expected one (empty) style element, got %d", n)
		}
		if got := doc.Find("head style").Text(); got != "" {
			t.Errorf("expected empty style, got %q", got)
		}
		if inlined[0].Bytes != 0 {
			t.Errorf("expected 0 bytes recorded, got %d", inlined[0].Bytes)
		}
	})

	t.Run("preserves document order of multiple links", func(t *testing.T) {
		t.Parallel()

		tr := New(&stubResolver{css: map[string]string{
			"/static/a.css": "a{}",
			"/static/b.css": "b{}",
		}}, nil)
		doc := parseDoc(t, `<html><head>`+
			`<link rel="stylesheet" href="/static/a.css">`+
			`<link rel="stylesheet" href="/static/b.css">`+
			`</head><body></body></html>`)

		if _, err := tr.InlineStylesheets(doc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var texts []string
		doc.Find("head style").Each(func(_ int, s *goquery.Selection) {
			texts = append(texts, s.Text())
		})
		if len(texts) != 2 || texts[0] != "a{}" || texts[1] != "b{}" {
			t.Errorf("style order wrong: %v", texts)
		}
	})

	t.Run("read failure aborts with the resolver error", func(t *testing.T) {
		t.Parallel()

		readErr := errors.New("permission denied")
		tr := New(&stubResolver{err: readErr}, nil)
		doc := parseDoc(t, `<html><head><link rel="stylesheet" href="/static/x.css"></head><body></body></html>`)

		if _, err := tr.InlineStylesheets(doc); !errors.Is(err, readErr) {
			t.Errorf("got %v, expected the resolver error", err)
		}
	})
}

func TestInsertBoilerplate(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><head></head><body></body></html>`)
	InsertBoilerplate(doc)

	styles := doc.Find(`head style[amp-boilerplate]`)
	if styles.Length() != 2 {
		t.Fatalf("expected two boilerplate styles, got %d", styles.Length())
	}
	if got := styles.First().Text(); got != boilerplateCSS {
		t.Errorf("anti-flicker payload altered:\n%s", got)
	}

	noscript := doc.Find("head noscript")
	if noscript.Length() != 1 {
		t.Fatalf("expected one noscript wrapper, got %d", noscript.Length())
	}
	if got := noscript.Find(`style[amp-boilerplate]`).Text(); got != boilerplateNoscriptCSS {
		t.Errorf("noscript payload altered:\n%s", got)
	}
}

func TestRewriteImages(t *testing.T) {
	t.Parallel()

	t.Run("replaces img with amp-img carrying all attributes", func(t *testing.T) {
		t.Parallel()

		tr := New(nil, &stubProber{width: 800, height: 600})
		doc := parseDoc(t, `<html><head></head><body><img src="/static/a.jpg" alt="a"></body></html>`)

		tr.RewriteImages(context.Background(), doc)

		if n := doc.Find("img").Length(); n != 0 {
			t.Errorf("expected no img elements, got %d", n)
		}
		ampImg := doc.Find("amp-img")
		if ampImg.Length() != 1 {
			t.Fatalf("expected one amp-img, got %d", ampImg.Length())
		}
		if alt, _ := ampImg.Attr("alt"); alt != "a" {
			t.Errorf("alt attribute not carried over, got %q", alt)
		}
	})

	t.Run("does not probe when both dimensions are present in pixels", func(t *testing.T) {
		t.Parallel()

		prober := &stubProber{width: 999, height: 999}
		tr := New(nil, prober)
		doc := parseDoc(t, `<html><head></head><body><img src="/a.jpg" width="640" height="480"></body></html>`)

		tr.RewriteImages(context.Background(), doc)

		if prober.calls != 0 {
			t.Errorf("prober invoked %d times, expected 0", prober.calls)
		}
		ampImg := doc.Find("amp-img")
		if w, _ := ampImg.Attr("width"); w != "640" {
			t.Errorf("width changed to %q", w)
		}
		if h, _ := ampImg.Attr("height"); h != "480" {
			t.Errorf("height changed to %q", h)
		}
	})

	t.Run("probes when a dimension is a percentage", func(t *testing.T) {
		t.Parallel()

		prober := &stubProber{width: 320, height: 240}
		tr := New(nil, prober)
		doc := parseDoc(t, `<html><head></head><body><img src="/a.jpg" width="100%" height="480"></body></html>`)

		tr.RewriteImages(context.Background(), doc)

		if prober.calls != 1 {
			t.Fatalf("prober invoked %d times, expected 1", prober.calls)
		}
		ampImg := doc.Find("amp-img")
		if w, _ := ampImg.Attr("width"); w != "320" {
			t.Errorf("got width %q, expected 320", w)
		}
		if h, _ := ampImg.Attr("height"); h != "240" {
			t.Errorf("got height %q, expected 240", h)
		}
	})

	t.Run("nil prober writes the zero sentinel", func(t *testing.T) {
		t.Parallel()

		tr := New(nil, nil)
		doc := parseDoc(t, `<html><head></head><body><img src="/a.jpg"></body></html>`)

		tr.RewriteImages(context.Background(), doc)

		ampImg := doc.Find("amp-img")
		if w, _ := ampImg.Attr("width"); w != "0" {
			t.Errorf("got width %q, expected 0", w)
		}
		if h, _ := ampImg.Attr("height"); h != "0" {
			t.Errorf("got height %q, expected 0", h)
		}
	})

	t.Run("keeps an explicit layout attribute", func(t *testing.T) {
		t.Parallel()

		tr := New(nil, &stubProber{width: 1, height: 1})
		doc := parseDoc(t, `<html><head></head><body><img src="/a.jpg" layout="fixed" width="10" height="10"></body></html>`)

		tr.RewriteImages(context.Background(), doc)

		if layout, _ := doc.Find("amp-img").Attr("layout"); layout != "fixed" {
			t.Errorf("got layout %q, expected fixed", layout)
		}
	})

	t.Run("defaults layout to responsive", func(t *testing.T) {
		t.Parallel()

		tr := New(nil, &stubProber{width: 1, height: 1})
		doc := parseDoc(t, `<html><head></head><body><img src="/a.jpg"></body></html>`)

		tr.RewriteImages(context.Background(), doc)

		if layout, _ := doc.Find("amp-img").Attr("layout"); layout != "responsive" {
			t.Errorf("got layout %q, expected responsive", layout)
		}
	})

	t.Run("missing src skips the probe", func(t *testing.T) {
		t.Parallel()

		prober := &stubProber{width: 5, height: 5}
		tr := New(nil, prober)
		doc := parseDoc(t, `<html><head></head><body><img alt="decorative"></body></html>`)

		tr.RewriteImages(context.Background(), doc)

		if prober.calls != 0 {
			t.Errorf("prober invoked %d times, expected 0", prober.calls)
		}
		if n := doc.Find("amp-img").Length(); n != 1 {
			t.Errorf("img not rewritten")
		}
	})
}

func TestTransform(t *testing.T) {
	t.Parallel()

	t.Run("image scenario", func(t *testing.T) {
		t.Parallel()

		tr := New(nil, &stubProber{width: 800, height: 600})
		out, err := tr.Transform(context.Background(),
			[]byte(`<html><head></head><body><img src="/static/a.jpg"/></body></html>`), "/page")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		doc := parseDoc(t, out)
		if n := doc.Find("img").Length(); n != 0 {
			t.Errorf("output still contains %d img elements", n)
		}
		ampImg := doc.Find("amp-img")
		if ampImg.Length() != 1 {
			t.Fatalf("expected one amp-img in output")
		}
		for attr, want := range map[string]string{
			"src": "/static/a.jpg", "layout": "responsive", "width": "800", "height": "600",
		} {
			if got, _ := ampImg.Attr(attr); got != want {
				t.Errorf("amp-img %s = %q, expected %q", attr, got, want)
			}
		}
	})

	t.Run("stylesheet scenario", func(t *testing.T) {
		t.Parallel()

		tr := New(&stubResolver{css: map[string]string{"/static/x.css": "body{color:red}"}}, nil)
		out, err := tr.Transform(context.Background(),
			[]byte(`<html><head><link rel="stylesheet" href="/static/x.css"></head><body></body></html>`), "/page")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		doc := parseDoc(t, out)
		if n := doc.Find(`link[rel=stylesheet]`).Length(); n != 0 {
			t.Errorf("output still contains stylesheet links")
		}
		custom := doc.Find(`head style[amp-custom]`)
		if custom.Length() != 1 {
			t.Fatalf("expected one amp-custom style, got %d", custom.Length())
		}
		if got := custom.Text(); got != "body{color:red}" {
			t.Errorf("got inlined CSS %q", got)
		}
	})

	t.Run("establishes the full head invariant", func(t *testing.T) {
		t.Parallel()

		tr := New(nil, nil)
		out, err := tr.Transform(context.Background(),
			[]byte(`<html><head><title>t</title><script src="x.js"></script></head><body></body></html>`), "/p")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		doc := parseDoc(t, out)

		if _, ok := doc.Find("html").Attr("amp"); !ok {
			t.Error("html missing amp attribute")
		}
		if n := doc.Find(`head link[rel=canonical]`).Length(); n != 1 {
			t.Errorf("expected one canonical link, got %d", n)
		}

		head := doc.Find("head").Get(0)
		first := head.FirstChild
		if first == nil || first.Data != "meta" {
			t.Fatal("first head child is not the charset meta")
		}

		scripts := doc.Find("script")
		if scripts.Length() != 1 {
			t.Fatalf("expected only the runtime script, got %d scripts", scripts.Length())
		}
		if src, _ := scripts.Attr("src"); src != "https://cdn.ampproject.org/v0.js" {
			t.Errorf("surviving script is not the runtime: %q", src)
		}

		if n := doc.Find(`head style[amp-boilerplate]`).Length(); n != 2 {
			t.Errorf("expected two boilerplate styles, got %d", n)
		}
	})

	t.Run("running twice is not idempotent", func(t *testing.T) {
		t.Parallel()

		// Canonical link and boilerplate are appends, so a second pass
		// duplicates them. Asserted here so nobody assumes otherwise.
		tr := New(nil, nil)
		ctx := context.Background()

		once, err := tr.Transform(ctx, []byte(`<html><head></head><body></body></html>`), "/p")
		if err != nil {
			t.Fatalf("first transform: %v", err)
		}
		twice, err := tr.Transform(ctx, []byte(once), "/p")
		if err != nil {
			t.Fatalf("second transform: %v", err)
		}

		doc := parseDoc(t, twice)
		if n := doc.Find(`head link[rel=canonical]`).Length(); n != 2 {
			t.Errorf("expected two canonical links after double transform, got %d", n)
		}
		if n := doc.Find(`head style[amp-boilerplate]`).Length(); n <= 2 {
			t.Errorf("expected duplicated boilerplate, got %d styles", n)
		}
	})

	t.Run("report summarizes the edits", func(t *testing.T) {
		t.Parallel()

		tr := New(
			&stubResolver{css: map[string]string{"/static/x.css": "p{}"}},
			&stubProber{width: 10, height: 20},
		)
		_, rep, err := tr.TransformWithReport(context.Background(), []byte(
			`<html><head><title>My Page</title>`+
				`<script src="x.js"></script>`+
				`<link rel="stylesheet" href="/static/x.css">`+
				`</head><body><p>hello</p><img src="/i.png"></body></html>`), "/page")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if rep.Title != "My Page" {
			t.Errorf("got title %q", rep.Title)
		}
		if rep.CanonicalPath != "/page" {
			t.Errorf("got canonical path %q", rep.CanonicalPath)
		}
		if rep.ScriptsRemoved != 1 {
			t.Errorf("got %d scripts removed, expected 1", rep.ScriptsRemoved)
		}
		if len(rep.Stylesheets) != 1 || rep.Stylesheets[0].Bytes != 3 {
			t.Errorf("unexpected stylesheet records: %+v", rep.Stylesheets)
		}
		if len(rep.Images) != 1 || !rep.Images[0].Probed || rep.Images[0].Width != "10" {
			t.Errorf("unexpected image records: %+v", rep.Images)
		}
		if !strings.Contains(rep.Preview, "hello") {
			t.Errorf("preview missing body text: %q", rep.Preview)
		}
	})

	t.Run("resolver read failure is fatal", func(t *testing.T) {
		t.Parallel()

		readErr := errors.New("missing file")
		tr := New(&stubResolver{err: readErr}, nil)
		_, err := tr.Transform(context.Background(),
			[]byte(`<html><head><link rel="stylesheet" href="/static/x.css"></head><body></body></html>`), "/p")
		if !errors.Is(err, readErr) {
			t.Errorf("got %v, expected the read error", err)
		}
	})
}
