// CLAUDE:SUMMARY Fuzzy text strategy: Dice similarity over words/bigrams with tag, proximity, and class bonuses.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom"
)

// priorityTags are interactive or label-like elements that recorded text
// usually belongs to; a candidate with one of these gets a small rank boost.
var priorityTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true,
	"textarea": true, "label": true, "option": true, "summary": true,
}

// fuzzyStrategy relocates by visible-text similarity when every exact signal
// has rotted.
type fuzzyStrategy struct {
	threshold float64
	tuning    FuzzyTuning
}

func newFuzzyStrategy(threshold float64, tuning FuzzyTuning) *fuzzyStrategy {
	if threshold <= 0 {
		threshold = 0.40
	}
	if tuning.WordWeight == 0 && tuning.BigramWeight == 0 {
		tuning = defaultFuzzyTuning()
	}
	return &fuzzyStrategy{threshold: threshold, tuning: tuning}
}

func (*fuzzyStrategy) Name() string { return StrategyFuzzyText }
func (*fuzzyStrategy) Base() float64 { return baseFuzzyText }

func (*fuzzyStrategy) CanHandle(d *descriptor.Descriptor) bool { return d.Text != "" }

// fuzzyCandidate pairs a node with its base similarity and adjusted rank.
type fuzzyCandidate struct {
	node dom.Node
	sim  float64
	rank float64
}

func (s *fuzzyStrategy) Find(d *descriptor.Descriptor, q dom.Queryable) (*Candidate, error) {
	target := normalizeText(d.Text)
	if target == "" {
		return nil, nil
	}

	nodes, err := q.Elements("")
	if err != nil {
		return nil, fmt.Errorf("fuzzy-text: list elements: %w", err)
	}

	classSet := d.ClassSet()
	var cands []fuzzyCandidate
	for _, n := range nodes {
		text := normalizeText(n.Text())
		if text == "" {
			continue
		}
		sim := textSimilarity(target, text, s.tuning)
		if sim < s.threshold {
			continue
		}
		cands = append(cands, fuzzyCandidate{node: n, sim: sim, rank: s.rank(d, n, sim, classSet)})
	}
	if len(cands) == 0 {
		return nil, nil
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].rank > cands[j].rank })
	best := cands[0]
	ambiguous := len(cands) > 1 && best.rank-cands[1].rank < 0.10

	conf := baseFuzzyText + s.tierBonus(best.sim)
	conf -= min(0.10, 0.02*float64(len(cands)-1))
	if ambiguous {
		conf -= 0.10
	}

	return &Candidate{
		Node:       best.node,
		Confidence: clamp01(conf),
		Ambiguous:  ambiguous,
		Note:       fmt.Sprintf("similarity %.2f over %d candidates", best.sim, len(cands)),
	}, nil
}

// rank orders accepted candidates: base similarity plus situational bonuses
// that break ties between equally similar texts.
func (s *fuzzyStrategy) rank(d *descriptor.Descriptor, n dom.Node, sim float64, classSet map[string]bool) float64 {
	rank := sim
	tag := n.Tag()
	if d.Tag != "" && tag == d.Tag {
		rank += 0.15
	}
	if priorityTags[tag] {
		rank += 0.05
	}
	if d.Bounds != nil {
		if r, ok := n.Rect(); ok {
			switch gap := d.Bounds.Gap(r); {
			case gap < 50:
				rank += 0.15
			case gap < 100:
				rank += 0.10
			case gap < 200:
				rank += 0.05
			}
		}
	}
	if len(classSet) > 0 {
		shared := 0
		for _, c := range classTokens(n) {
			if classSet[c] {
				shared++
			}
		}
		rank += min(0.10, 0.10*float64(shared)/float64(len(classSet)))
	}
	return rank
}

// tierBonus converts base similarity into the confidence adjustment above
// the strategy tier: exact (or near) matches earn the full bonus, the rest
// scale between the acceptance threshold and the high tier.
func (s *fuzzyStrategy) tierBonus(sim float64) float64 {
	switch {
	case sim >= 0.95:
		return 0.25
	case sim >= 0.80:
		return 0.15
	default:
		span := 0.80 - s.threshold
		if span <= 0 {
			return 0
		}
		return 0.15 * (sim - s.threshold) / span
	}
}

func classTokens(n dom.Node) []string {
	raw := n.Attr("class")
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}
