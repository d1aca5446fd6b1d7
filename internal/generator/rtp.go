package generator

import (
	"sync"

	"github.com/shopspring/decimal"
)

// RTPTracker accumulates the realized multiplier stream so the status
// surface can report the mean outcome against the configured target.
// Safe for concurrent reads.
type RTPTracker struct {
	mu     sync.Mutex
	rounds int64
	sum    decimal.Decimal
}

func NewRTPTracker() *RTPTracker {
	return &RTPTracker{sum: decimal.Zero}
}

func (t *RTPTracker) Record(multiplier float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rounds++
	t.sum = t.sum.Add(decimal.NewFromFloat(multiplier))
}

// Mean returns the realized mean multiplier, 0 before any round.
func (t *RTPTracker) Mean() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rounds == 0 {
		return 0
	}
	mean, _ := t.sum.Div(decimal.NewFromInt(t.rounds)).Round(4).Float64()
	return mean
}

func (t *RTPTracker) Rounds() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rounds
}
