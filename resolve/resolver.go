// CLAUDE:SUMMARY Resolver orchestration: priority-ordered strategy passes with retry, visibility and confidence floors.
package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom"
)

// Resolver orchestrates the strategies against one document scope. Create
// one per run with New; a Resolver is safe for sequential reuse but holds no
// match state between calls.
type Resolver struct {
	opts       Options
	strategies map[string]Strategy
	order      []string
}

// New creates a Resolver. Zero-value options get the documented defaults.
func New(opts Options) *Resolver {
	opts.applyDefaults()

	all := map[string]Strategy{
		StrategyXPath:       xpathStrategy{},
		StrategyID:          idStrategy{},
		StrategyName:        nameStrategy{},
		StrategyAriaLabel:   ariaLabelStrategy{},
		StrategyPlaceholder: placeholderStrategy{},
		StrategyDataAttrs:   dataAttrsStrategy{},
		StrategySelector:    selectorStrategy{},
		StrategyFuzzyText:   newFuzzyStrategy(opts.FuzzyThreshold, opts.FuzzyTuning),
		StrategySpatial:     newSpatialStrategy(opts.SpatialMaxDistance),
	}

	disabled := make(map[string]bool, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[name] = true
	}
	var order []string
	for _, name := range opts.Order {
		if _, known := all[name]; known && !disabled[name] {
			order = append(order, name)
		}
	}

	return &Resolver{opts: opts, strategies: all, order: order}
}

// Order returns the effective strategy order after overrides and disabling.
func (r *Resolver) Order() []string { return append([]string(nil), r.order...) }

// Find relocates the descriptor's element within the given scope. It tries
// strategies strictly in priority order and returns the first candidate that
// passes the visibility check (when required) and the minimum-confidence
// floor. Ambiguity never reorders strategies: it only lowers the ambiguous
// strategy's own confidence, which may push it under the floor and let a
// later strategy win. On exhaustion the result carries a nil Node and a
// diagnostic; Find itself never fails.
//
// The call is bounded by Options.Timeout independently of ctx; ctx
// cancellation is honored at the retry sleep, never mid-strategy.
func (r *Resolver) Find(ctx context.Context, d *descriptor.Descriptor, q dom.Queryable) *MatchResult {
	start := time.Now()
	res := &MatchResult{}

	if !d.Viable() {
		res.Elapsed = time.Since(start)
		res.Diagnostic = "descriptor not viable: no xpath, id, name, selector, or bounds"
		return res
	}
	d = d.Clone()

	deadline := start.Add(r.opts.Timeout)
	seen := make(map[string]bool)
	for {
		if r.pass(d, q, res, seen) {
			res.Elapsed = time.Since(start)
			return res
		}

		if res.Retries >= r.opts.MaxRetries {
			res.Diagnostic = fmt.Sprintf("no strategy matched after %d retries", res.Retries)
			break
		}
		if time.Now().Add(r.opts.RetryInterval).After(deadline) {
			res.Diagnostic = fmt.Sprintf("no strategy matched within %s", r.opts.Timeout)
			break
		}

		select {
		case <-ctx.Done():
			res.Diagnostic = "canceled: " + ctx.Err().Error()
			res.Elapsed = time.Since(start)
			return res
		case <-time.After(r.opts.RetryInterval):
		}
		res.Retries++
	}

	res.Elapsed = time.Since(start)
	return res
}

// FindOnce performs exactly one pass with no sleeping, for instantaneous
// presence checks.
func (r *Resolver) FindOnce(d *descriptor.Descriptor, q dom.Queryable) *MatchResult {
	start := time.Now()
	res := &MatchResult{}
	if !d.Viable() {
		res.Elapsed = time.Since(start)
		res.Diagnostic = "descriptor not viable: no xpath, id, name, selector, or bounds"
		return res
	}
	d = d.Clone()
	if !r.pass(d, q, res, make(map[string]bool)) {
		res.Diagnostic = "no strategy matched"
	}
	res.Elapsed = time.Since(start)
	return res
}

// pass runs one iteration over the strategy order. It fills res and reports
// whether an acceptable match was found. Strategy errors are logged and
// treated as no-match: a broken query must never abort the search.
func (r *Resolver) pass(d *descriptor.Descriptor, q dom.Queryable, res *MatchResult, seen map[string]bool) bool {
	log := r.opts.Logger
	for _, name := range r.order {
		s := r.strategies[name]
		if !s.CanHandle(d) {
			continue
		}
		if !seen[name] {
			seen[name] = true
			res.Attempted = append(res.Attempted, name)
		}

		cand, err := r.tryStrategy(s, d, q)
		if err != nil {
			log.Debug("strategy failed", "strategy", name, "error", err)
			continue
		}
		if cand == nil || cand.Node == nil {
			continue
		}
		if r.opts.RequireVisible && !dom.Visible(cand.Node) {
			log.Debug("match rejected: not visible", "strategy", name)
			continue
		}
		if cand.Confidence < r.opts.MinConfidence {
			log.Debug("match rejected: below confidence floor",
				"strategy", name, "confidence", cand.Confidence, "floor", r.opts.MinConfidence)
			continue
		}

		res.Node = cand.Node
		res.Strategy = name
		res.Confidence = cand.Confidence
		res.Ambiguous = cand.Ambiguous
		res.Diagnostic = cand.Note
		return true
	}
	return false
}

// tryStrategy isolates one strategy attempt, converting a panicking query
// into an error so it is recovered like any other strategy failure.
func (r *Resolver) tryStrategy(s Strategy, d *descriptor.Descriptor, q dom.Queryable) (cand *Candidate, err error) {
	defer func() {
		if p := recover(); p != nil {
			cand, err = nil, fmt.Errorf("strategy panic: %v", p)
		}
	}()
	return s.Find(d, q)
}
