// Package crawl — BFS frontier with deduplication.
package crawl

// frontier is a breadth-first queue that remembers every URL it has been
// offered, so a page is processed at most once.
type frontier struct {
	items []string
	known map[string]bool
	pos   int
}

func newFrontier() *frontier {
	return &frontier{known: make(map[string]bool)}
}

// add enqueues a URL unless it was already offered.
func (f *frontier) add(url string) {
	if f.known[url] {
		return
	}
	f.known[url] = true
	f.items = append(f.items, url)
}

func (f *frontier) hasNext() bool {
	return f.pos < len(f.items)
}

func (f *frontier) next() string {
	url := f.items[f.pos]
	f.pos++
	return url
}

// seen returns the number of unique URLs offered so far.
func (f *frontier) seen() int {
	return len(f.known)
}

// all returns every discovered URL in BFS order.
func (f *frontier) all() []string {
	return f.items
}
