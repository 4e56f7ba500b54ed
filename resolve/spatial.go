// CLAUDE:SUMMARY Spatial proximity strategy: box-gap ranking around the recorded bounding rectangle.
package resolve

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom"
)

// spatialStrategy is the last resort: find whatever visible element now sits
// where the recorded one used to be.
type spatialStrategy struct {
	maxDistance float64 // px
}

func newSpatialStrategy(maxDistance float64) *spatialStrategy {
	if maxDistance <= 0 {
		maxDistance = 200
	}
	return &spatialStrategy{maxDistance: maxDistance}
}

func (*spatialStrategy) Name() string { return StrategySpatial }
func (*spatialStrategy) Base() float64 { return baseSpatial }

func (*spatialStrategy) CanHandle(d *descriptor.Descriptor) bool { return d.Bounds != nil }

type spatialCandidate struct {
	node dom.Node
	gap  float64
	rank float64 // gap minus bonuses; lower is better
	tag  bool
	size bool
}

func (s *spatialStrategy) Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error) {
	if d.Bounds == nil {
		return nil, nil
	}
	target := *d.Bounds

	// Tag filter narrows the universe when the descriptor recorded one.
	nodes, err := q.Elements(d.Tag)
	if err != nil {
		return nil, fmt.Errorf("spatial: list elements: %w", err)
	}

	var cands []spatialCandidate
	for _, n := range nodes {
		if !dom.Visible(n) {
			continue
		}
		r, ok := n.Rect()
		if !ok {
			continue
		}
		gap := target.Gap(r)
		if gap > s.maxDistance {
			continue
		}
		c := spatialCandidate{node: n, gap: gap, rank: gap}
		if d.Tag != "" && n.Tag() == d.Tag {
			c.tag = true
			c.rank -= 20
		}
		if target.SizeWithin(r, 0.3) {
			c.size = true
			c.rank -= 10
		}
		cands = append(cands, c)
	}
	if len(cands) == 0 {
		return nil, nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].rank != cands[j].rank {
			return cands[i].rank < cands[j].rank
		}
		return cands[i].gap < cands[j].gap
	})
	best := cands[0]
	ambiguous := len(cands) > 1 && cands[1].rank-best.rank < 20

	conf := baseSpatial
	switch {
	case best.gap < 50:
		conf += 0.15
	case best.gap < 100:
		conf += 0.10
	default:
		// Beyond 100px trust decays toward the cutoff.
		conf -= 0.10 * (best.gap - 100) / 100
	}
	if best.tag {
		conf += 0.05
	}
	if best.size {
		conf += 0.03
	}
	conf -= min(0.10, 0.02*float64(len(cands)-1))
	if ambiguous {
		conf -= 0.10
	}

	return &Candidate{
		Node:       best.node,
		Confidence: clamp01(conf),
		Ambiguous:  ambiguous,
		Note:       fmt.Sprintf("gap %.0fpx over %d candidates", best.gap, len(cands)),
	}, nil
}
