// CLAUDE:SUMMARY Live dom.Provider over a rod page: non-waiting queries, frame and shadow-root descent, computed style and geometry.
package roddom

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom"
)

// queryRoot is the subset of rod query methods shared by *rod.Page and
// *rod.Element, letting one scope implementation serve documents, frames,
// and shadow roots. Only the non-waiting plural forms are used: the resolver
// owns all retry timing.
type queryRoot interface {
	Elements(selector string) (rod.Elements, error)
	ElementsX(xpath string) (rod.Elements, error)
}

// Provider implements dom.Provider for one live page.
type Provider struct {
	page *rod.Page
}

// NewProvider wraps an open rod page.
func NewProvider(page *rod.Page) *Provider { return &Provider{page: page} }

// Document returns the top-level document scope.
func (p *Provider) Document(ctx context.Context) (dom.Queryable, error) {
	return &scope{root: p.page.Context(ctx)}, nil
}

// Scope descends embedded frames by index, then shadow hosts by selector.
func (p *Provider) Scope(ctx context.Context, frames []int, shadowHosts []string) (dom.Queryable, error) {
	page := p.page.Context(ctx)
	for _, idx := range frames {
		iframes, err := page.Elements("iframe")
		if err != nil {
			return nil, fmt.Errorf("roddom: list frames: %w", err)
		}
		if idx < 0 || idx >= len(iframes) {
			return nil, fmt.Errorf("roddom: frame index %d out of range (%d frames)", idx, len(iframes))
		}
		sub, err := iframes[idx].Frame()
		if err != nil {
			return nil, fmt.Errorf("roddom: enter frame %d: %w", idx, err)
		}
		page = sub
	}

	var root queryRoot = page
	for _, sel := range shadowHosts {
		hosts, err := root.Elements(sel)
		if err != nil {
			return nil, fmt.Errorf("roddom: query shadow host %q: %w", sel, err)
		}
		if len(hosts) == 0 {
			return nil, fmt.Errorf("roddom: shadow host %q not found", sel)
		}
		sr, err := hosts[0].ShadowRoot()
		if err != nil {
			return nil, fmt.Errorf("roddom: open shadow root of %q: %w", sel, err)
		}
		root = sr
	}
	return &scope{root: root}, nil
}

// scope implements dom.Queryable over one query root.
type scope struct {
	root queryRoot
}

func (s *scope) Query(selector string) (dom.Node, error) {
	els, err := s.root.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("roddom: query %q: %w", selector, err)
	}
	if len(els) == 0 {
		return nil, nil
	}
	return &node{el: els.First()}, nil
}

func (s *scope) QueryAll(selector string) ([]dom.Node, error) {
	els, err := s.root.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("roddom: query all %q: %w", selector, err)
	}
	return wrap(els), nil
}

func (s *scope) QueryXPath(expr string) (dom.Node, error) {
	els, err := s.root.ElementsX(expr)
	if err != nil {
		return nil, fmt.Errorf("roddom: xpath %q: %w", expr, err)
	}
	if len(els) == 0 {
		return nil, nil
	}
	return &node{el: els.First()}, nil
}

func (s *scope) Elements(tag string) ([]dom.Node, error) {
	if tag == "" {
		tag = "*"
	}
	els, err := s.root.Elements(tag)
	if err != nil {
		return nil, fmt.Errorf("roddom: elements %q: %w", tag, err)
	}
	return wrap(els), nil
}

func wrap(els rod.Elements) []dom.Node {
	out := make([]dom.Node, 0, len(els))
	for _, el := range els {
		out = append(out, &node{el: el})
	}
	return out
}

// node implements dom.Node over a live element. Reads go back to the page
// on every call; nothing is cached, since the page mutates underneath.
type node struct {
	el *rod.Element
}

// Element exposes the underlying rod element for actors.
func (n *node) Element() *rod.Element { return n.el }

func (n *node) Tag() string {
	res, err := n.el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (n *node) Attr(name string) string {
	v, err := n.el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func (n *node) Text() string {
	t, err := n.el.Text()
	if err != nil {
		return ""
	}
	return t
}

func (n *node) Rect() (descriptor.Rect, bool) {
	shape, err := n.el.Shape()
	if err != nil || len(shape.Quads) == 0 {
		return descriptor.Rect{}, false
	}
	box := shape.Box()
	return descriptor.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, true
}

func (n *node) Style(prop string) string {
	res, err := n.el.Eval(`(p) => getComputedStyle(this).getPropertyValue(p)`, prop)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}
