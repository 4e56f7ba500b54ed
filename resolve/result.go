package resolve

import (
	"time"

	"github.com/hazyhaar/domreplay/dom"
)

// MatchResult is the outcome of one resolution call. Created fresh per call;
// the Node must not be cached across calls since the page may change.
type MatchResult struct {
	// Node is the resolved element, nil when nothing matched.
	Node dom.Node `json:"-"`

	// Strategy names the strategy that produced the match.
	Strategy string `json:"strategy,omitempty"`

	// Confidence is the heuristic trust score in [0,1].
	Confidence float64 `json:"confidence"`

	// Ambiguous marks a near-tie among candidates of the winning strategy.
	Ambiguous bool `json:"ambiguous,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
	Retries int           `json:"retries"`

	// Attempted lists the strategies tried, in order, across all passes.
	Attempted []string `json:"attempted"`

	// Diagnostic explains a miss (or annotates a hit) for reporting.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Found reports whether the call resolved an element.
func (m *MatchResult) Found() bool { return m != nil && m.Node != nil }
