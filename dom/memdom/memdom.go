// CLAUDE:SUMMARY Static DOM provider over golang.org/x/net/html with CSS/XPath subset evaluation and inline-style geometry.
// Package memdom implements dom.Provider over a parsed static HTML document.
// It exists for tests and offline checks: no browser, no layout engine.
// Geometry and computed style come from inline style hints only; documents
// without position hints simply report no geometry and visibility falls back
// to the style checks.
//
// Frame descent uses iframe srcdoc content; shadow descent uses declarative
// shadow DOM (<template shadowrootmode>), matching how a static serialisation
// of a live page carries those subtrees.
package memdom

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom"
)

// Document is a parsed static HTML document.
type Document struct {
	root *html.Node
}

// Parse parses an HTML document from a string.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("memdom: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// MustParse parses an HTML document, panicking on error. Test fixture helper.
func MustParse(src string) *Document {
	d, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return d
}

// Document returns the top-level scope.
func (d *Document) Document(_ context.Context) (dom.Queryable, error) {
	return &scope{root: d.root}, nil
}

// Scope descends the frame-index chain (iframe srcdoc documents) then the
// shadow-host chain (declarative shadow templates).
func (d *Document) Scope(ctx context.Context, frames []int, shadowHosts []string) (dom.Queryable, error) {
	cur := d.root
	for _, idx := range frames {
		iframes := findAllTags(cur, "iframe")
		if idx < 0 || idx >= len(iframes) {
			return nil, fmt.Errorf("memdom: frame index %d out of range (%d frames)", idx, len(iframes))
		}
		src := getAttr(iframes[idx], "srcdoc")
		if src == "" {
			return nil, fmt.Errorf("memdom: frame %d has no srcdoc content", idx)
		}
		sub, err := html.Parse(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("memdom: parse frame %d: %w", idx, err)
		}
		cur = sub
	}
	for _, sel := range shadowHosts {
		hosts := querySelectorAll(cur, sel)
		if len(hosts) == 0 {
			return nil, fmt.Errorf("memdom: shadow host %q not found", sel)
		}
		tmpl := shadowTemplate(hosts[0])
		if tmpl == nil {
			return nil, fmt.Errorf("memdom: host %q has no declarative shadow root", sel)
		}
		cur = tmpl
	}
	return &scope{root: cur}, nil
}

// shadowTemplate returns the declarative shadow root template child of a
// host element, nil when absent.
func shadowTemplate(host *html.Node) *html.Node {
	for c := host.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "template" && hasAttr(c, "shadowrootmode") {
			return c
		}
	}
	return nil
}

// scope implements dom.Queryable over a subtree.
type scope struct {
	root *html.Node
}

func (s *scope) Query(selector string) (dom.Node, error) {
	all := querySelectorAll(s.root, selector)
	if len(all) == 0 {
		return nil, nil
	}
	return &node{n: all[0]}, nil
}

func (s *scope) QueryAll(selector string) ([]dom.Node, error) {
	return wrapAll(querySelectorAll(s.root, selector)), nil
}

func (s *scope) QueryXPath(expr string) (dom.Node, error) {
	all, err := evaluateXPath(s.root, expr)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return &node{n: all[0]}, nil
}

func (s *scope) Elements(tag string) ([]dom.Node, error) {
	if tag == "" {
		return wrapAll(findAllElements(s.root)), nil
	}
	return wrapAll(findAllTags(s.root, strings.ToLower(tag))), nil
}

func wrapAll(ns []*html.Node) []dom.Node {
	out := make([]dom.Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, &node{n: n})
	}
	return out
}

// node implements dom.Node over an *html.Node.
type node struct {
	n *html.Node
}

func (e *node) Tag() string { return strings.ToLower(e.n.Data) }

func (e *node) Attr(name string) string { return getAttr(e.n, name) }

func (e *node) Text() string { return collectText(e.n) }

func (e *node) Rect() (descriptor.Rect, bool) { return styleRect(e.n) }

func (e *node) Style(prop string) string { return computedStyle(e.n, prop) }

// Unwrap exposes the underlying parse node, for callers layering extra
// inspection on top of the dom interfaces.
func (e *node) Unwrap() *html.Node { return e.n }

// collectText gathers text content, whitespace-collapsed.
func collectText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// findAllElements returns every element node in the subtree.
func findAllElements(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// findAllTags returns all elements with the given lowercase tag.
func findAllTags(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
