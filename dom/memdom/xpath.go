// CLAUDE:SUMMARY XPath subset evaluation over parsed HTML: absolute paths, // descendant steps, attribute and positional predicates.
package memdom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// evaluateXPath evaluates a practical XPath subset and returns matching
// element nodes:
//   - /html/body/div          absolute path
//   - /html/body/div[2]       positional predicate
//   - //button                descendant anywhere
//   - //div[@class='x']       attribute predicate
//
// Recorded descriptors carry absolute paths; the descendant form is accepted
// for hand-written step files.
func evaluateXPath(doc *html.Node, xpath string) ([]*html.Node, error) {
	xpath = strings.TrimSpace(xpath)
	if xpath == "" {
		return nil, fmt.Errorf("memdom: empty xpath")
	}

	if strings.HasPrefix(xpath, "//") {
		return findDescendants(doc, xpath[2:])
	}
	if strings.HasPrefix(xpath, "/") {
		return followPath([]*html.Node{doc}, xpath[1:])
	}
	return findDescendants(doc, xpath)
}

// findDescendants matches the first step anywhere, then follows the rest as
// a child path.
func findDescendants(root *html.Node, expr string) ([]*html.Node, error) {
	head, rest, _ := strings.Cut(expr, "/")
	tag, pred, err := parseXPathStep(head)
	if err != nil {
		return nil, err
	}

	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matchesXPathStep(n, tag, pred) {
			matches = append(matches, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if rest == "" {
		return matches, nil
	}
	var out []*html.Node
	for _, m := range matches {
		sub, err := followPath([]*html.Node{m}, rest)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// followPath follows step/step/... as direct children of the current set.
func followPath(current []*html.Node, path string) ([]*html.Node, error) {
	for _, step := range strings.Split(path, "/") {
		if step == "" {
			continue
		}
		tag, pred, err := parseXPathStep(step)
		if err != nil {
			return nil, err
		}
		var next []*html.Node
		for _, parent := range current {
			for c := parent.FirstChild; c != nil; c = c.NextSibling {
				if matchesXPathStep(c, tag, pred) {
					next = append(next, c)
				}
			}
		}
		current = next
	}
	return current, nil
}

type xpathPredicate struct {
	attrName  string
	attrValue string
	position  int // 1-based
}

// parseXPathStep parses "div", "div[@class='x']", "div[2]".
func parseXPathStep(step string) (string, *xpathPredicate, error) {
	idx := strings.IndexByte(step, '[')
	if idx < 0 {
		return strings.ToLower(step), nil, nil
	}
	if !strings.HasSuffix(step, "]") {
		return "", nil, fmt.Errorf("memdom: malformed xpath step %q", step)
	}

	tag := strings.ToLower(step[:idx])
	predStr := strings.TrimRight(step[idx+1:], "]")
	pred := &xpathPredicate{}

	if n, err := strconv.Atoi(predStr); err == nil {
		if n < 1 {
			return "", nil, fmt.Errorf("memdom: xpath position %d out of range", n)
		}
		pred.position = n
		return tag, pred, nil
	}

	if strings.HasPrefix(predStr, "@") {
		attrExpr := predStr[1:]
		if name, val, ok := strings.Cut(attrExpr, "="); ok {
			pred.attrName = name
			pred.attrValue = strings.Trim(val, `'"`)
		} else {
			pred.attrName = attrExpr
		}
		return tag, pred, nil
	}

	return "", nil, fmt.Errorf("memdom: unsupported xpath predicate %q", predStr)
}

func matchesXPathStep(n *html.Node, tag string, pred *xpathPredicate) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if tag != "*" && n.Data != tag {
		return false
	}
	if pred == nil {
		return true
	}

	if pred.attrName != "" {
		val := getAttr(n, pred.attrName)
		if pred.attrValue != "" {
			return val == pred.attrValue
		}
		return hasAttr(n, pred.attrName)
	}

	if pred.position > 0 {
		if n.Parent == nil {
			return pred.position == 1
		}
		pos := 0
		for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode && s.Data == n.Data {
				pos++
				if s == n {
					return pos == pred.position
				}
			}
		}
		return false
	}

	return true
}
