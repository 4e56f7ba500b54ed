// CLAUDE:SUMMARY Exact-match strategies: path expression, id, form name, aria-label, placeholder, data attributes.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom"
)

// xpathStrategy relocates via the recorded absolute path expression.
type xpathStrategy struct{}

func (xpathStrategy) Name() string { return StrategyXPath }
func (xpathStrategy) Base() float64 { return baseXPath }

func (xpathStrategy) CanHandle(d *descriptor.Descriptor) bool { return d.XPath != "" }

func (xpathStrategy) Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error) {
	n, err := q.QueryXPath(d.XPath)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", d.XPath, err)
	}
	if n == nil {
		return nil, nil
	}
	return &Candidate{Node: n, Confidence: baseXPath}, nil
}

// idStrategy relocates via the recorded id attribute. A secondary check on
// name or tag confirms the hit but never changes the returned tier.
type idStrategy struct{}

func (idStrategy) Name() string { return StrategyID }
func (idStrategy) Base() float64 { return baseID }

func (idStrategy) CanHandle(d *descriptor.Descriptor) bool { return d.ID != "" }

func (idStrategy) Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error) {
	n, err := attrLookup(q, "id", d.ID)
	if err != nil || n == nil {
		return nil, err
	}
	c := &Candidate{Node: n, Confidence: baseID}
	if (d.Name != "" && n.Attr("name") == d.Name) || (d.Tag != "" && n.Tag() == d.Tag) {
		c.Note = "id confirmed by name/tag"
	}
	return c, nil
}

// nameStrategy relocates via the form name attribute.
type nameStrategy struct{}

func (nameStrategy) Name() string { return StrategyName }
func (nameStrategy) Base() float64 { return baseName }

func (nameStrategy) CanHandle(d *descriptor.Descriptor) bool { return d.Name != "" }

func (nameStrategy) Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error) {
	n, err := attrLookup(q, "name", d.Name)
	if err != nil || n == nil {
		return nil, err
	}
	return &Candidate{Node: n, Confidence: baseName}, nil
}

// ariaLabelStrategy relocates via the accessibility label.
type ariaLabelStrategy struct{}

func (ariaLabelStrategy) Name() string { return StrategyAriaLabel }
func (ariaLabelStrategy) Base() float64 { return baseAriaLabel }

func (ariaLabelStrategy) CanHandle(d *descriptor.Descriptor) bool { return d.AriaLabel != "" }

func (ariaLabelStrategy) Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error) {
	n, err := attrLookup(q, "aria-label", d.AriaLabel)
	if err != nil || n == nil {
		return nil, err
	}
	return &Candidate{Node: n, Confidence: baseAriaLabel}, nil
}

// placeholderStrategy relocates via placeholder text.
type placeholderStrategy struct{}

func (placeholderStrategy) Name() string { return StrategyPlaceholder }
func (placeholderStrategy) Base() float64 { return basePlaceholder }

func (placeholderStrategy) CanHandle(d *descriptor.Descriptor) bool { return d.Placeholder != "" }

func (placeholderStrategy) Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error) {
	n, err := attrLookup(q, "placeholder", d.Placeholder)
	if err != nil || n == nil {
		return nil, err
	}
	return &Candidate{Node: n, Confidence: basePlaceholder}, nil
}

// testHookAttrs are data attributes put there for automation; when recorded,
// they are tried before the rest.
var testHookAttrs = []string{"data-testid", "data-test", "data-qa", "data-cy"}

// dataAttrsStrategy relocates via recorded custom data attributes. All
// recorded attributes combined are tried first, then test hooks, then the
// remaining attributes in stable order.
type dataAttrsStrategy struct{}

func (dataAttrsStrategy) Name() string { return StrategyDataAttrs }
func (dataAttrsStrategy) Base() float64 { return baseDataAttrs }

func (dataAttrsStrategy) CanHandle(d *descriptor.Descriptor) bool { return len(d.DataAttrs) > 0 }

func (dataAttrsStrategy) Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error) {
	if len(d.DataAttrs) > 1 {
		var sel strings.Builder
		for _, k := range sortedKeys(d.DataAttrs) {
			sel.WriteString(attrSelector(k, d.DataAttrs[k]))
		}
		n, err := q.Query(sel.String())
		if err != nil {
			return nil, fmt.Errorf("data-attrs combined: %w", err)
		}
		if n != nil {
			return &Candidate{Node: n, Confidence: baseDataAttrs, Note: "all data attributes"}, nil
		}
	}

	for _, k := range dataAttrOrder(d.DataAttrs) {
		n, err := attrLookup(q, k, d.DataAttrs[k])
		if err != nil {
			return nil, err
		}
		if n != nil {
			return &Candidate{Node: n, Confidence: baseDataAttrs, Note: k}, nil
		}
	}
	return nil, nil
}

// dataAttrOrder yields recorded attribute keys, test hooks first, the rest
// sorted so insertion order never matters.
func dataAttrOrder(attrs map[string]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range testHookAttrs {
		if _, ok := attrs[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	for _, k := range sortedKeys(attrs) {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// attrLookup performs a single attribute-equality query, first match wins.
func attrLookup(q dom.Queryable, attr, value string) (dom.Node, error) {
	n, err := q.Query(attrSelector(attr, value))
	if err != nil {
		return nil, fmt.Errorf("attr %s=%q: %w", attr, value, err)
	}
	return n, nil
}

func attrSelector(attr, value string) string {
	return "[" + attr + "=" + quoteAttr(value) + "]"
}

// quoteAttr quotes an attribute value when it needs it.
func quoteAttr(v string) string {
	if strings.ContainsAny(v, " \t\"'[]=") {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}
