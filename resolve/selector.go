// CLAUDE:SUMMARY Generated-selector strategy: ranked candidate selectors with volatile-class filtering and specificity scoring.
package resolve

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom"
)

// selectorStrategy rebuilds CSS selectors from the recorded attributes and
// picks the one matching fewest elements, preferring a unique hit. The
// recorded generated selector itself is tried as one candidate among the
// rebuilt ones, since it is the most likely to have rotted.
type selectorStrategy struct{}

func (selectorStrategy) Name() string { return StrategySelector }
func (selectorStrategy) Base() float64 { return baseSelector }

func (selectorStrategy) CanHandle(d *descriptor.Descriptor) bool {
	return d.Selector != "" || d.Tag != "" || len(d.Classes) > 0
}

// selectorCandidate is one rebuilt selector with its rank inputs.
type selectorCandidate struct {
	selector    string
	specificity int
	idBased     bool
	classOnly   bool
	tagOnly     bool
}

func (selectorStrategy) Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error) {
	cands := buildSelectorCandidates(d)
	if len(cands) == 0 {
		return nil, nil
	}

	type scored struct {
		cand    selectorCandidate
		matches []dom.Node
	}
	var best *scored
	for _, c := range cands {
		nodes, err := q.QueryAll(c.selector)
		if err != nil {
			// One malformed candidate must not sink the rest.
			continue
		}
		if len(nodes) == 0 {
			continue
		}
		if len(nodes) == 1 {
			best = &scored{cand: c, matches: nodes}
			break
		}
		if best == nil ||
			len(nodes) < len(best.matches) ||
			(len(nodes) == len(best.matches) && c.specificity > best.cand.specificity) {
			best = &scored{cand: c, matches: nodes}
		}
	}
	if best == nil {
		return nil, nil
	}

	count := len(best.matches)
	conf := baseSelector
	if count == 1 {
		conf += 0.15
	} else {
		conf -= min(0.15, 0.03*float64(count-1))
	}
	if best.cand.idBased {
		conf += 0.10
	}
	if best.cand.classOnly {
		conf -= 0.05
	}
	if best.cand.tagOnly {
		conf -= 0.20
	}
	conf += min(0.05, float64(best.cand.specificity)/1000)

	note := fmt.Sprintf("selector %q matched %d", best.cand.selector, count)
	return &Candidate{
		Node:       best.matches[0],
		Confidence: clamp01(conf),
		Ambiguous:  count > 1,
		Note:       note,
	}, nil
}

// buildSelectorCandidates produces ranked candidate selectors from the
// descriptor, most specific first.
func buildSelectorCandidates(d *descriptor.Descriptor) []selectorCandidate {
	var out []selectorCandidate
	classes := stableClasses(d.Classes)

	if d.ID != "" {
		sel := d.Tag + "#" + d.ID
		out = append(out, selectorCandidate{selector: sel, specificity: 100 + tagPoints(d.Tag), idBased: true})
	}

	// Combined tag + classes + attributes.
	if d.Tag != "" && (len(classes) > 0 || len(d.DataAttrs) > 0) {
		var b strings.Builder
		b.WriteString(d.Tag)
		for _, c := range classes {
			b.WriteString("." + c)
		}
		spec := 1 + 10*len(classes)
		for _, k := range sortedKeys(d.DataAttrs) {
			b.WriteString(attrSelector(k, d.DataAttrs[k]))
			spec += 10
		}
		out = append(out, selectorCandidate{selector: b.String(), specificity: spec})
	}

	if d.Selector != "" {
		out = append(out, selectorCandidate{selector: d.Selector, specificity: selectorSpecificity(d.Selector)})
	}

	if len(classes) > 0 {
		out = append(out, selectorCandidate{
			selector:    "." + strings.Join(classes, "."),
			specificity: 10 * len(classes),
			classOnly:   true,
		})
	}

	switch {
	case d.Name != "":
		sel := d.Tag + attrSelector("name", d.Name)
		out = append(out, selectorCandidate{selector: sel, specificity: 10 + tagPoints(d.Tag)})
	case d.Placeholder != "":
		sel := d.Tag + attrSelector("placeholder", d.Placeholder)
		out = append(out, selectorCandidate{selector: sel, specificity: 10 + tagPoints(d.Tag)})
	}

	if d.Tag != "" {
		out = append(out, selectorCandidate{selector: d.Tag, specificity: 1, tagOnly: true})
	}
	return out
}

// stableClasses drops volatile class tokens: framework-generated prefixes
// and short hash-like names that rotate between builds.
func stableClasses(classes []string) []string {
	var out []string
	for _, c := range classes {
		if !isVolatileClass(c) {
			out = append(out, c)
		}
	}
	return out
}

// volatilePrefixes are class prefixes emitted by CSS-in-JS and component
// frameworks; the token after the prefix is a build hash.
var volatilePrefixes = []string{
	"css-", "jss", "sc-", "jsx-", "svelte-", "emotion-", "chakra-", "makeStyles-", "Mui",
}

func isVolatileClass(c string) bool {
	for _, p := range volatilePrefixes {
		if strings.HasPrefix(c, p) {
			return true
		}
	}
	return looksHashed(c)
}

// looksHashed flags short alphanumeric tokens with enough digits to be a
// generated hash rather than a human-chosen name.
func looksHashed(c string) bool {
	if len(c) < 5 || len(c) > 10 {
		return false
	}
	digits := 0
	for _, r := range c {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r), r == '_', r == '-':
		default:
			return false
		}
	}
	return digits >= 2
}

// selectorSpecificity scores a selector string: id=100, class/attr=10, tag=1.
func selectorSpecificity(sel string) int {
	spec := 0
	spec += 100 * strings.Count(sel, "#")
	spec += 10 * strings.Count(sel, ".")
	spec += 10 * strings.Count(sel, "[")
	for _, part := range strings.Fields(sel) {
		if part != "" && part[0] != '.' && part[0] != '#' && part[0] != '[' {
			spec++
		}
	}
	return spec
}

func tagPoints(tag string) int {
	if tag == "" {
		return 0
	}
	return 1
}
