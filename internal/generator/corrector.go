package generator

import (
	"github.com/shopspring/decimal"

	"github.com/spinforge/outcome-engine/internal/config"
	"github.com/spinforge/outcome-engine/internal/logger"
)

// windowStats are the trailing-window figures the relief rules match
// against. pending is the value currently flowing through the pipeline;
// it is not yet part of the history.
type windowStats struct {
	floorRun  int
	lowRun    int
	lowCount  int
	inspected int
	pending   float64
}

// reliefRule is one relief tier: a pure predicate over window stats and
// the band an override is drawn from. Rules are evaluated in priority
// order, first match wins.
type reliefRule struct {
	name  string
	match func(windowStats) bool
	lo    float64
	hi    float64
}

// Corrector inspects the rolling history and overrides the pending
// value when an adverse streak is detected. It owns the final pipeline
// step: rounding to two decimal places and appending to history.
type Corrector struct {
	cfg     config.ReliefConfig
	history *History
	rng     Source
	rules   []reliefRule
}

func NewCorrector(cfg config.ReliefConfig, history *History, rng Source) *Corrector {
	c := &Corrector{cfg: cfg, history: history, rng: rng}
	c.rules = []reliefRule{
		{
			name: "floor_streak",
			match: func(s windowStats) bool {
				return cfg.FloorStreak > 0 && s.floorRun >= cfg.FloorStreak
			},
			lo: cfg.SevereMin,
			hi: cfg.SevereMax,
		},
		{
			name: "low_streak",
			match: func(s windowStats) bool {
				return cfg.LowStreak > 0 && s.lowRun >= cfg.LowStreak
			},
			lo: cfg.ModerateMin,
			hi: cfg.ModerateMax,
		},
		{
			name: "low_ratio",
			match: func(s windowStats) bool {
				if cfg.LowRatioWindow <= 0 || s.inspected < cfg.LowRatioWindow {
					return false
				}
				if s.pending > cfg.LowThreshold {
					return false
				}
				return float64(s.lowCount) >= cfg.LowRatio*float64(cfg.LowRatioWindow)
			},
			lo: cfg.MildMin,
			hi: cfg.MildMax,
		},
	}
	return c
}

// Correct applies at most one relief tier to value, rounds the result
// to two decimals, appends it to history and returns it.
func (c *Corrector) Correct(value float64) float64 {
	stats := windowStats{
		floorRun:  c.history.TrailingRunAtOrBelow(c.cfg.FloorBand),
		lowRun:    c.history.TrailingRunAtOrBelow(c.cfg.LowThreshold),
		lowCount:  c.history.CountAtOrBelow(c.cfg.LowThreshold, c.cfg.LowRatioWindow),
		inspected: c.history.Len(),
		pending:   value,
	}

	for _, rule := range c.rules {
		if rule.match(stats) {
			value = rule.lo + c.rng.Float64()*(rule.hi-rule.lo)
			logger.Debug("Relief applied", "rule", rule.name, "value", value)
			break
		}
	}

	final := roundTo2(value)
	c.history.Append(final)
	return final
}

func roundTo2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
