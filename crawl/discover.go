// Package crawl discovers the internal pages of a site for mirror-mode
// conversion. It prefers sitemap.xml and falls back to breadth-first link
// crawling, keeping discovery separate from the transformation pipeline.
package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/ampify/core"
)

// maxPages bounds BFS crawling to avoid runaway discovery on large sites.
const maxPages = 100

// sitemapEntry holds one URL from a sitemap.xml.
type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// sitemap is the root element of a sitemap.xml.
type sitemap struct {
	URLs []sitemapEntry `xml:"url"`
}

// Discover finds the internal page URLs of the site containing baseURL.
// It tries sitemap.xml first and falls back to link crawling; the baseURL
// itself is always part of the result.
func Discover(ctx context.Context, baseURL string, fetcher core.Fetcher) ([]string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	host := parsed.Host

	sitemapURL := fmt.Sprintf("%s://%s/sitemap.xml", parsed.Scheme, host)
	if urls, err := fromSitemap(ctx, sitemapURL, host); err == nil && len(urls) > 0 {
		return urls, nil
	}

	return fromLinks(ctx, baseURL, host, fetcher)
}

// fromSitemap fetches and parses sitemap.xml for same-host page URLs.
func fromSitemap(ctx context.Context, sitemapURL, host string) ([]string, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var sm sitemap
	if err := xml.Unmarshal(body, &sm); err != nil {
		return nil, err
	}

	var urls []string
	for _, entry := range sm.URLs {
		if sameHost(entry.Loc, host) && isPage(entry.Loc) {
			urls = append(urls, normalize(entry.Loc))
		}
	}
	return urls, nil
}

// fromLinks crawls breadth-first from startURL, collecting same-host pages.
func fromLinks(ctx context.Context, startURL, host string, fetcher core.Fetcher) ([]string, error) {
	frontier := newFrontier()
	frontier.add(normalize(startURL))

	for frontier.hasNext() && frontier.seen() < maxPages {
		pageURL := frontier.next()

		result, err := fetcher.Fetch(ctx, pageURL)
		if err != nil || result.StatusCode < 200 || result.StatusCode >= 300 {
			continue // skip unreachable pages, keep crawling
		}

		for _, link := range pageLinks(result.HTML, pageURL) {
			if sameHost(link, host) && isPage(link) {
				frontier.add(normalize(link))
			}
		}
	}

	return frontier.all(), nil
}

// pageLinks extracts all resolvable href values from <a> tags.
func pageLinks(htmlText, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if resolved := resolveHref(href, base); resolved != "" {
			links = append(links, resolved)
		}
	})
	return links
}

// resolveHref resolves a possibly-relative href against a base, dropping
// non-navigable schemes and bare fragments.
func resolveHref(href string, base *url.URL) string {
	if href == "" ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "tel:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	return resolved.String()
}
