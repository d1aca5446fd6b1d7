package generator

import (
	"github.com/spinforge/outcome-engine/internal/config"
)

// Source is the uniform randomness source for the pipeline. *rand.Rand
// satisfies it; tests inject scripted sources.
type Source interface {
	Float64() float64
}

// Sampler draws a raw multiplier from the payout-ratio-parameterized
// distribution. Rare tail tiers are checked first and short-circuit the
// inverse draw. No rounding happens here; the corrector rounds once at
// the end of the pipeline.
type Sampler struct {
	cfg config.GenerationConfig
	rng Source
}

func NewSampler(cfg config.GenerationConfig, rng Source) *Sampler {
	return &Sampler{cfg: cfg, rng: rng}
}

func (s *Sampler) Draw() float64 {
	if len(s.cfg.TailTiers) > 0 {
		roll := s.rng.Float64()
		cumulative := 0.0
		for _, tier := range s.cfg.TailTiers {
			cumulative += tier.Chance
			if roll < cumulative {
				return tier.Min + s.rng.Float64()*(tier.Max-tier.Min)
			}
		}
	}

	u := s.rng.Float64()
	m := (1 - s.cfg.HouseEdge) / (1 - u)
	if m < s.cfg.MinMultiplier {
		m = s.cfg.MinMultiplier
	}
	if m > s.cfg.MaxMultiplier {
		m = s.cfg.MaxMultiplier
	}
	return m
}
