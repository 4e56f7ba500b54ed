package resolve

import (
	"log/slog"
	"time"
)

// Options configures a Resolver.
type Options struct {
	// Timeout bounds one Find call, retries included. Default: 2s.
	Timeout time.Duration `yaml:"timeout"`

	// RetryInterval is the sleep between passes. Default: 150ms.
	RetryInterval time.Duration `yaml:"retry_interval"`

	// MaxRetries caps the number of re-passes after the first. Default: 13.
	MaxRetries int `yaml:"max_retries"`

	// MinConfidence rejects matches scoring below it. Default: 0 (accept all).
	MinConfidence float64 `yaml:"min_confidence"`

	// RequireVisible rejects matches failing the visibility predicate.
	RequireVisible bool `yaml:"require_visible"`

	// Order overrides the strategy priority order. Unknown names are
	// ignored; strategies left out are not tried. Default: DefaultOrder.
	Order []string `yaml:"order"`

	// Disabled lists strategies to skip.
	Disabled []string `yaml:"disabled"`

	// FuzzyThreshold is the minimum text similarity to accept. Default: 0.40.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// FuzzyTuning blends word and bigram similarity for short strings.
	FuzzyTuning FuzzyTuning `yaml:"fuzzy_tuning"`

	// SpatialMaxDistance is the box-gap cutoff in px. Default: 200.
	SpatialMaxDistance float64 `yaml:"spatial_max_distance"`

	Logger *slog.Logger `yaml:"-"`
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 150 * time.Millisecond
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 13
	}
	if o.FuzzyThreshold <= 0 {
		o.FuzzyThreshold = 0.40
	}
	if o.FuzzyTuning.WordWeight == 0 && o.FuzzyTuning.BigramWeight == 0 {
		o.FuzzyTuning = defaultFuzzyTuning()
	}
	if o.SpatialMaxDistance <= 0 {
		o.SpatialMaxDistance = 200
	}
	if len(o.Order) == 0 {
		o.Order = DefaultOrder()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}
