// CLAUDE:SUMMARY Strategy contract, fixed base confidences, and the default priority order.
// Package resolve turns a recorded element descriptor back into a live
// element. Nine strategies are tried in a fixed priority order, from exact
// identifiers down to fuzzy text and spatial proximity; the first match that
// clears the visibility and confidence floors wins.
package resolve

import (
	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom"
)

// Strategy names, usable in Options.Order and Options.Disabled.
const (
	StrategyXPath       = "xpath"
	StrategyID          = "id"
	StrategyName        = "name"
	StrategyAriaLabel   = "aria-label"
	StrategyPlaceholder = "placeholder"
	StrategyDataAttrs   = "data-attrs"
	StrategySelector    = "selector"
	StrategyFuzzyText   = "fuzzy-text"
	StrategySpatial     = "spatial"
)

// Base trust tiers. Exact strategies return their tier unchanged; the
// heuristic strategies adjust around theirs.
const (
	baseXPath       = 1.00
	baseID          = 0.90
	baseName        = 0.80
	baseAriaLabel   = 0.75
	basePlaceholder = 0.70
	baseDataAttrs   = 0.65
	baseSelector    = 0.60
	baseFuzzyText   = 0.40
	baseSpatial     = 0.35
)

// DefaultOrder is the built-in strategy priority order, most trusted first.
func DefaultOrder() []string {
	return []string{
		StrategyXPath,
		StrategyID,
		StrategyName,
		StrategyAriaLabel,
		StrategyPlaceholder,
		StrategyDataAttrs,
		StrategySelector,
		StrategyFuzzyText,
		StrategySpatial,
	}
}

// Candidate is one strategy's proposed element with its trust score.
type Candidate struct {
	Node       dom.Node
	Confidence float64

	// Ambiguous marks a near-tie between the two leading candidates; the
	// confidence already carries the ambiguity penalty.
	Ambiguous bool

	// Note carries a short diagnostic for logs and MatchResult output.
	Note string
}

// Strategy is one matching policy. Implementations are pure with respect to
// the descriptor: they never mutate it and hold no state between calls.
// Find returns (nil, nil) when the strategy simply has no match; errors are
// reserved for broken queries and never abort the overall search.
type Strategy interface {
	Name() string
	Base() float64
	CanHandle(d *descriptor.Descriptor) bool
	Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error)
}
