// Package scoring derives the bfbValue ranking score from a player's
// percentile-annotated season line.
package scoring

import (
	"fmt"
	"math"

	"bfb/ingestion/internal/models"
)

// scale maps the [-1,1]-ish raw distance onto the integer bfbValue range
const scale = 1000

// weightTolerance absorbs float error when checking that weights sum to 1
const weightTolerance = 1e-9

// PositionConfig weights a position's points-per-game percentile against its
// dynasty value percentile. Cutoff places the reference frontier.
// WeightPPG + WeightValue must equal 1.
type PositionConfig struct {
	WeightPPG   float64
	WeightValue float64
	Cutoff      float64
}

// Validate reports a config whose weights do not sum to 1 or would divide by zero.
func (c PositionConfig) Validate() error {
	if c.WeightPPG <= 0 || c.WeightValue <= 0 {
		return fmt.Errorf("weights must be positive (ppg=%v, value=%v)", c.WeightPPG, c.WeightValue)
	}
	if math.Abs(c.WeightPPG+c.WeightValue-1) > weightTolerance {
		return fmt.Errorf("weights sum to %v, want 1", c.WeightPPG+c.WeightValue)
	}
	return nil
}

// Configs maps each scored position to its weighting
type Configs map[models.Position]PositionConfig

// Validate checks every entry
func (cs Configs) Validate() error {
	for pos, c := range cs {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("position %s: %w", pos, err)
		}
	}
	return nil
}

// DefaultConfigs returns the stock position table. K, DEF and anything else
// are intentionally absent and score as nil.
func DefaultConfigs() Configs {
	return Configs{
		models.PositionQB: {WeightPPG: 0.7, WeightValue: 0.3, Cutoff: 0.9},
		models.PositionRB: {WeightPPG: 0.45, WeightValue: 0.55, Cutoff: 0.8},
		models.PositionWR: {WeightPPG: 0.55, WeightValue: 0.45, Cutoff: 0.85},
		models.PositionTE: {WeightPPG: 0.7, WeightValue: 0.3, Cutoff: 0.9},
	}
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithConfigs replaces the position table. Entries are copied.
func WithConfigs(configs Configs) Option {
	return func(s *Scorer) {
		s.configs = make(Configs, len(configs))
		for pos, c := range configs {
			s.configs[pos] = c
		}
	}
}

// Scorer computes bfbValue. It is safe for concurrent use.
type Scorer struct {
	configs Configs
}

// NewScorer creates a Scorer over DefaultConfigs unless overridden.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{configs: DefaultConfigs()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the player's bfbValue, or nil when the position is not configured.
func (s *Scorer) Score(p models.AnnotatedPlayer) *int {
	cfg, ok := s.configs[models.ParsePosition(p.Player.Position)]
	if !ok {
		return nil
	}

	// No on-field sample: rank on dynasty value alone.
	if !p.GmsActive.Valid || p.GmsActive.Int32 == 0 {
		v := int(math.Round(p.ValuePercentile * scale))
		return &v
	}

	v := int(math.Round(cfg.raw(p.ValuePercentile, p.PPGPercentile) * scale))
	return &v
}

// raw is the signed distance of (vp, pp) from the position's frontier.
func (c PositionConfig) raw(vp, pp float64) float64 {
	lineY := (c.Cutoff - c.WeightValue*vp) / c.WeightPPG
	lineX := (c.Cutoff - c.WeightPPG*pp) / c.WeightValue

	dY := pp - lineY
	dX := vp - lineX

	denom := dX*dX + dY*dY
	if denom == 0 {
		return 0
	}

	dY2 := dY * dY
	// Rounding can push the radicand a hair below zero when dX is tiny.
	raw := math.Sqrt(math.Max(0, dY2-dY2*dY2/denom))

	if dX < 0 && dY < 0 {
		raw = -raw
	}
	return raw
}
