package generator

import (
	"time"

	"github.com/spinforge/outcome-engine/internal/config"
	"github.com/spinforge/outcome-engine/internal/core"
)

// Sequencer owns the monotonic round counter and the batch buffer.
// Every NextRound call runs the full sampler -> pattern breaker ->
// corrector pipeline exactly once. The buffer is purely additive here;
// only the controller clears it after a successful persist cycle.
//
// Not safe for concurrent use; the controller serializes access.
type Sequencer struct {
	next      uint64
	buffer    []core.Round
	history   *History
	sampler   *Sampler
	pattern   *PatternBreaker
	corrector *Corrector
	tracker   *RTPTracker
}

// NewSequencer builds the generation pipeline. lastPersisted is the
// highest round number ever persisted (or the configured default when
// nothing is persisted yet); the first generated round is one above it.
func NewSequencer(cfg config.GenerationConfig, rng Source, lastPersisted uint64) *Sequencer {
	history := NewHistory(cfg.HistorySize)
	return &Sequencer{
		next:      lastPersisted + 1,
		history:   history,
		sampler:   NewSampler(cfg, rng),
		pattern:   NewPatternBreaker(cfg.Pattern, cfg.MinMultiplier, cfg.Relief.FloorBand, rng),
		corrector: NewCorrector(cfg.Relief, history, rng),
		tracker:   NewRTPTracker(),
	}
}

func (s *Sequencer) NextRound() core.Round {
	raw := s.sampler.Draw()
	perturbed := s.pattern.Perturb(raw, s.next, s.history)
	final := s.corrector.Correct(perturbed)

	r := core.Round{
		RoundNumber: s.next,
		Multiplier:  final,
		CreatedAt:   time.Now().UTC(),
	}
	s.buffer = append(s.buffer, r)
	s.tracker.Record(final)
	s.next++
	return r
}

// NextToGenerate returns the round number the next NextRound call will
// produce.
func (s *Sequencer) NextToGenerate() uint64 {
	return s.next
}

// Buffer returns a copy of the not-yet-persisted rounds.
func (s *Sequencer) Buffer() []core.Round {
	out := make([]core.Round, len(s.buffer))
	copy(out, s.buffer)
	return out
}

func (s *Sequencer) BufferLen() int {
	return len(s.buffer)
}

func (s *Sequencer) ClearBuffer() {
	s.buffer = s.buffer[:0]
}

func (s *Sequencer) Tracker() *RTPTracker {
	return s.tracker
}
