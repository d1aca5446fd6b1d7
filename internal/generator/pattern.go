package generator

import (
	"math"

	"github.com/spinforge/outcome-engine/internal/config"
)

// PatternBreaker perturbs sampled values so the output stream has no
// exploitable periodicity: round-indexed modulo forcing, magnitude
// damping after runs of large payouts, and a narrow additive jitter
// with a low-amplitude oscillation keyed on the round number.
type PatternBreaker struct {
	cfg       config.PatternConfig
	min       float64
	floorBand float64
	rng       Source
}

func NewPatternBreaker(cfg config.PatternConfig, minMultiplier, floorBand float64, rng Source) *PatternBreaker {
	return &PatternBreaker{
		cfg:       cfg,
		min:       minMultiplier,
		floorBand: floorBand,
		rng:       rng,
	}
}

func (p *PatternBreaker) Perturb(raw float64, roundNumber uint64, history *History) float64 {
	v := raw

	forced := false
	if p.cfg.ModuloEvery > 0 && p.cfg.ModuloChance > 0 && roundNumber%p.cfg.ModuloEvery == 0 {
		if p.rng.Float64() < p.cfg.ModuloChance {
			// forced to the floor band regardless of the sampled value
			v = p.min + p.rng.Float64()*(p.floorBand-p.min)
			forced = true
		}
	}

	if !forced && p.cfg.DampThreshold > 0 && v > p.cfg.DampThreshold {
		if history.CountAbove(p.cfg.DampThreshold, p.cfg.DampWindow) >= p.cfg.DampAfter {
			v *= p.cfg.DampMin + p.rng.Float64()*(p.cfg.DampMax-p.cfg.DampMin)
		}
	}

	if p.cfg.JitterBand > 0 {
		v += (p.rng.Float64()*2 - 1) * p.cfg.JitterBand
	}
	if p.cfg.OscAmplitude > 0 {
		v += p.cfg.OscAmplitude * math.Sin(float64(roundNumber)*0.35)
	}

	if v < p.min {
		v = p.min
	}
	return v
}
