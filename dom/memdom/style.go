package memdom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domreplay/descriptor"
)

// inherited style properties resolve up the ancestor chain when the element
// has no own value.
var inheritedProps = map[string]bool{
	"visibility": true,
}

// computedStyle approximates a computed style value from inline style
// attributes. display:none on any ancestor makes the element display:none,
// matching how a layout engine would treat the subtree.
func computedStyle(n *html.Node, prop string) string {
	if prop == "display" {
		for cur := n; cur != nil; cur = cur.Parent {
			if cur.Type == html.ElementNode && inlineStyle(cur, "display") == "none" {
				return "none"
			}
		}
		return inlineStyle(n, "display")
	}
	if v := inlineStyle(n, prop); v != "" {
		return v
	}
	if inheritedProps[prop] {
		for cur := n.Parent; cur != nil; cur = cur.Parent {
			if cur.Type != html.ElementNode {
				continue
			}
			if v := inlineStyle(cur, prop); v != "" {
				return v
			}
		}
	}
	return ""
}

// inlineStyle reads one property from the style attribute.
func inlineStyle(n *html.Node, prop string) string {
	style := getAttr(n, "style")
	if style == "" {
		return ""
	}
	for _, decl := range strings.Split(style, ";") {
		name, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(name) == prop {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// styleRect derives a bounding rectangle from inline left/top/width/height
// hints. A static document has no layout engine; geometry exists only where
// the markup positions elements explicitly.
func styleRect(n *html.Node) (descriptor.Rect, bool) {
	w, wok := stylePx(n, "width")
	h, hok := stylePx(n, "height")
	if !wok || !hok {
		return descriptor.Rect{}, false
	}
	x, _ := stylePx(n, "left")
	y, _ := stylePx(n, "top")
	return descriptor.Rect{X: x, Y: y, Width: w, Height: h}, true
}

func stylePx(n *html.Node, prop string) (float64, bool) {
	v := inlineStyle(n, prop)
	if v == "" {
		return 0, false
	}
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
