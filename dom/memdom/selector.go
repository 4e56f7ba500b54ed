// CLAUDE:SUMMARY CSS selector subset evaluation over parsed HTML: tag, #id, .class chains, [attr] predicates, descendant combinator.
package memdom

import (
	"strings"

	"golang.org/x/net/html"
)

// querySelectorAll returns all nodes matching a simple CSS selector.
// Supported subset:
//   - tag: "button", "div"
//   - #id: "#main"
//   - .class chains: ".btn.primary"
//   - [attr] / [attr=val] predicates, repeatable
//   - combinations: "button.btn[type=submit]"
//   - descendant combinator via whitespace
func querySelectorAll(root *html.Node, selector string) []*html.Node {
	parts := splitSelector(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(root, parts[0])
	for i := 1; i < len(parts); i++ {
		m := parseCompoundSelector(parts[i])
		// A node under two matching ancestors is still one match, and a
		// context node never matches as its own descendant.
		seen := make(map[*html.Node]struct{})
		var next []*html.Node
		for _, ancestor := range matches {
			for c := ancestor.FirstChild; c != nil; c = c.NextSibling {
				collectMatches(c, m, seen, &next)
			}
		}
		matches = next
	}
	return matches
}

// collectMatches walks the subtree rooted at n, appending each matching node
// once in document order.
func collectMatches(n *html.Node, m compoundSelector, seen map[*html.Node]struct{}, out *[]*html.Node) {
	if matchesSelector(n, m) {
		if _, dup := seen[n]; !dup {
			seen[n] = struct{}{}
			*out = append(*out, n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMatches(c, m, seen, out)
	}
}

// splitSelector splits on whitespace, except inside [...] predicates where
// quoted attribute values may contain spaces.
func splitSelector(sel string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	for i := 0; i < len(sel); i++ {
		c := sel[i]
		switch {
		case c == '[':
			depth++
			cur.WriteByte(c)
		case c == ']':
			if depth > 0 {
				depth--
			}
			cur.WriteByte(c)
		case (c == ' ' || c == '\t') && depth == 0:
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// matchSimple finds all nodes in the subtree matching one compound selector.
func matchSimple(root *html.Node, sel string) []*html.Node {
	m := parseCompoundSelector(sel)
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matchesSelector(n, m) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

type attrTest struct {
	key string
	val string // "" means presence only
}

type compoundSelector struct {
	tag     string
	id      string
	classes []string
	attrs   []attrTest
}

// parseCompoundSelector parses "tag#id.cls1.cls2[attr=val][attr2]".
func parseCompoundSelector(sel string) compoundSelector {
	var s compoundSelector

	// Strip attribute predicates first; they may contain '.'/'#'.
	for {
		open := strings.IndexByte(sel, '[')
		if open < 0 {
			break
		}
		shut := strings.IndexByte(sel[open:], ']')
		if shut < 0 {
			sel = sel[:open]
			break
		}
		expr := sel[open+1 : open+shut]
		sel = sel[:open] + sel[open+shut+1:]
		var at attrTest
		if eq := strings.IndexByte(expr, '='); eq >= 0 {
			at.key = expr[:eq]
			at.val = strings.Trim(expr[eq+1:], `"'`)
		} else {
			at.key = expr
		}
		if at.key != "" {
			s.attrs = append(s.attrs, at)
		}
	}

	// Remaining: tag, then # and . segments in any order.
	rest := sel
	for {
		hash := strings.IndexByte(rest, '#')
		dot := strings.IndexByte(rest, '.')
		cut := -1
		if hash >= 0 && (dot < 0 || hash < dot) {
			cut = hash
		} else if dot >= 0 {
			cut = dot
		}
		if cut < 0 {
			if s.tag == "" {
				s.tag = rest
			}
			break
		}
		head, marker := rest[:cut], rest[cut]
		if s.tag == "" && head != "" {
			s.tag = head
		}
		rest = rest[cut+1:]
		// Find the end of this #id or .class token.
		end := len(rest)
		for i := 0; i < len(rest); i++ {
			if rest[i] == '.' || rest[i] == '#' {
				end = i
				break
			}
		}
		token := rest[:end]
		rest = rest[end:]
		switch marker {
		case '#':
			s.id = token
		case '.':
			if token != "" {
				s.classes = append(s.classes, token)
			}
		}
	}
	s.tag = strings.ToLower(strings.TrimSpace(s.tag))
	if s.tag == "*" {
		s.tag = ""
	}
	return s
}

func matchesSelector(n *html.Node, s compoundSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && getAttr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range s.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, at := range s.attrs {
		if at.val != "" {
			if getAttr(n, at.key) != at.val {
				return false
			}
		} else if !hasAttr(n, at.key) {
			return false
		}
	}
	return true
}
