// Package amp — boilerplate payloads and node construction helpers.
package amp

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// boilerplateCSS is the mandatory AMP anti-flicker style block. It hides the
// body while the runtime loads and reveals it after an 8 second fallback
// window. The AMP cache validator matches this text byte for byte, so it
// must not be reformatted.
const boilerplateCSS = `body{-webkit-animation:-amp-start 8s steps(1,end) 0s 1 normal both;-moz-animation:-amp-start 8s steps(1,end) 0s 1 normal both;-ms-animation:-amp-start 8s steps(1,end) 0s 1 normal both;animation:-amp-start 8s steps(1,end) 0s 1 normal both}@-webkit-keyframes -amp-start{from{visibility:hidden}to{visibility:visible}}@-moz-keyframes -amp-start{from{visibility:hidden}to{visibility:visible}}@-ms-keyframes -amp-start{from{visibility:hidden}to{visibility:visible}}@-o-keyframes -amp-start{from{visibility:hidden}to{visibility:visible}}@keyframes -amp-start{from{visibility:hidden}to{visibility:visible}}`

// boilerplateNoscriptCSS is the noscript override: with scripting disabled
// the runtime never runs, so the hide animation must be cancelled outright.
// Byte-exact for the same reason as boilerplateCSS.
const boilerplateNoscriptCSS = `body{-webkit-animation:none;-moz-animation:none;-ms-animation:none;animation:none}`

// newElement builds a detached element node with the given attributes.
func newElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// textNode builds a detached text node.
func textNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// nodeAttr returns the value of the named attribute and whether it exists.
func nodeAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// setNodeAttr sets the named attribute, replacing an existing value.
func setNodeAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
