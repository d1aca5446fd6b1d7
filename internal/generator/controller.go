package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/spinforge/outcome-engine/internal/config"
	"github.com/spinforge/outcome-engine/internal/core"
	"github.com/spinforge/outcome-engine/internal/logger"
)

var (
	// ErrGenerating is returned when a trigger arrives while a batch
	// cycle is already in flight.
	ErrGenerating = errors.New("generator: batch generation already in progress")
	// ErrRangeConflict is returned when the target round range is
	// already persisted. Not retried; requires operator attention.
	ErrRangeConflict = errors.New("generator: round range already persisted")
)

// RoundStore is the persistence collaborator consumed by the controller.
type RoundStore interface {
	InsertBatch(rounds []core.Round) error
	MaxRoundNumber() (uint64, bool, error)
	RangeExists(start, end uint64) (bool, error)
}

// Downstream is the presentation service collaborator.
type Downstream interface {
	Health(ctx context.Context) (*core.QueueHealth, error)
	PushBatch(ctx context.Context, startRound uint64, rounds []core.Round) error
}

// Emitter publishes best-effort engine events. May be nil.
type Emitter interface {
	EmitBatch(startRound uint64, rounds []core.Round) error
	EmitError(err error) error
}

// Status is a consistent snapshot of the generation state for the
// read-only surface.
type Status struct {
	CurrentRound    uint64    `json:"current_round"`
	NextRound       uint64    `json:"next_round_to_generate"`
	Generating      bool      `json:"generating"`
	BufferedRounds  int       `json:"buffered_rounds"`
	LastQueueCheck  time.Time `json:"last_queue_check"`
	BatchSize       int       `json:"batch_size"`
	QueueThreshold  int       `json:"queue_threshold"`
	CheckInterval   string    `json:"check_interval"`
	RoundsGenerated int64     `json:"rounds_generated"`
	RealizedMean    float64   `json:"realized_mean_multiplier"`
}

// Controller is the batch state machine: Idle -> CheckingQueueDepth ->
// GeneratingBatch -> Idle, driven by a cron tick and by manual
// triggers. The generating flag serializes entry; mu guards all
// generation state and is never held across store/downstream calls.
type Controller struct {
	cfg        config.EngineConfig
	store      RoundStore
	downstream Downstream
	emitter    Emitter

	mu             sync.Mutex
	seq            *Sequencer
	generating     bool
	currentRound   uint64
	lastQueueCheck time.Time

	cron *cron.Cron
}

// NewController reconciles the sequencer against the highest persisted
// round number and wires the collaborators.
func NewController(cfg config.EngineConfig, rng Source, store RoundStore, downstream Downstream, emitter Emitter) (*Controller, error) {
	last, ok, err := store.MaxRoundNumber()
	if err != nil {
		return nil, fmt.Errorf("reconcile max round: %w", err)
	}
	if !ok {
		last = cfg.Generation.StartRound
	}
	logger.Info("Generation state reconciled", "last_persisted", last, "persisted_any", ok)

	return &Controller{
		cfg:          cfg,
		store:        store,
		downstream:   downstream,
		emitter:      emitter,
		seq:          NewSequencer(cfg.Generation, rng, last),
		currentRound: last,
	}, nil
}

// Start schedules the recurring queue-depth check.
func (c *Controller) Start() error {
	c.cron = cron.New()
	spec := fmt.Sprintf("@every %s", c.cfg.Batch.CheckInterval)
	if _, err := c.cron.AddFunc(spec, c.Tick); err != nil {
		return fmt.Errorf("schedule depth check: %w", err)
	}
	c.cron.Start()
	logger.Info("Batch controller started", "check_interval", c.cfg.Batch.CheckInterval,
		"batch_size", c.cfg.Batch.Size, "queue_threshold", c.cfg.Batch.QueueThreshold)
	return nil
}

// Stop halts the scheduler and waits for an in-flight cycle to finish.
func (c *Controller) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
	logger.Info("Batch controller stopped")
}

// Tick is the timer entry point. A tick during an in-flight cycle is a
// no-op.
func (c *Controller) Tick() {
	err := c.runCycle(context.Background(), false)
	switch {
	case err == nil:
	case errors.Is(err, ErrGenerating):
		logger.Debug("Tick skipped, generation in progress")
	default:
		// already logged at the failure site with context
	}
}

// TriggerCheck re-runs the queue-depth check on demand.
func (c *Controller) TriggerCheck(ctx context.Context) error {
	return c.runCycle(ctx, false)
}

// ForceGenerate enters batch generation directly, bypassing the
// queue-depth check but never the range-conflict guard.
func (c *Controller) ForceGenerate(ctx context.Context) error {
	return c.runCycle(ctx, true)
}

func (c *Controller) runCycle(ctx context.Context, force bool) error {
	if !c.beginGenerating() {
		return ErrGenerating
	}
	defer c.endGenerating()

	if !force {
		health, err := c.downstream.Health(ctx)
		c.mu.Lock()
		c.lastQueueCheck = time.Now().UTC()
		c.mu.Unlock()
		if err != nil {
			logger.Error("Queue depth check failed", "err", err)
			return fmt.Errorf("queue depth check: %w", err)
		}
		if health.QueueSize > c.cfg.Batch.QueueThreshold {
			logger.Debug("Queue above threshold, staying idle",
				"queue_size", health.QueueSize, "threshold", c.cfg.Batch.QueueThreshold,
				"game_phase", health.GamePhase)
			return nil
		}
	}

	return c.generateBatch(ctx)
}

func (c *Controller) generateBatch(ctx context.Context) error {
	// A non-empty buffer means a previous insert failed; retry exactly
	// that batch before generating anything new so a retried batch can
	// never merge with fresh rounds.
	c.mu.Lock()
	pending := c.seq.Buffer()
	c.mu.Unlock()
	if len(pending) > 0 {
		logger.Warn("Retrying retained batch", "start", pending[0].RoundNumber, "size", len(pending))
		return c.persistAndNotify(ctx, pending)
	}

	c.mu.Lock()
	start := c.seq.NextToGenerate()
	c.mu.Unlock()
	end := start + uint64(c.cfg.Batch.Size) - 1

	exists, err := c.store.RangeExists(start, end)
	if err != nil {
		logger.Error("Range conflict check failed", "start", start, "end", end, "err", err)
		return fmt.Errorf("range check: %w", err)
	}
	if exists {
		logger.Error("Round range already persisted, refusing to generate",
			"start", start, "end", end)
		c.emitError(ErrRangeConflict)
		return ErrRangeConflict
	}

	c.mu.Lock()
	for i := 0; i < c.cfg.Batch.Size; i++ {
		c.seq.NextRound()
	}
	batch := c.seq.Buffer()
	c.mu.Unlock()

	return c.persistAndNotify(ctx, batch)
}

func (c *Controller) persistAndNotify(ctx context.Context, batch []core.Round) error {
	if len(batch) == 0 {
		logger.Warn("Refusing to finalize an empty batch")
		return nil
	}
	start := batch[0].RoundNumber
	end := batch[len(batch)-1].RoundNumber

	if err := c.store.InsertBatch(batch); err != nil {
		logger.Error("Batch insert failed, buffer retained for retry",
			"start", start, "end", end, "err", err)
		c.emitError(err)
		return fmt.Errorf("insert batch: %w", err)
	}

	c.mu.Lock()
	c.seq.ClearBuffer()
	c.currentRound = end
	c.mu.Unlock()

	// The batch is durable at this point; notify and emit are best-effort.
	if err := c.downstream.PushBatch(ctx, start, batch); err != nil {
		logger.Error("Downstream notify failed", "start", start, "err", err)
	}
	if c.emitter != nil {
		if err := c.emitter.EmitBatch(start, batch); err != nil {
			logger.Warn("Batch event emit failed", "start", start, "err", err)
		}
	}

	logger.Info("Batch persisted", "start", start, "end", end, "size", len(batch))
	return nil
}

func (c *Controller) emitError(err error) {
	if c.emitter == nil {
		return
	}
	if emitErr := c.emitter.EmitError(err); emitErr != nil {
		logger.Warn("Error event emit failed", "err", emitErr)
	}
}

func (c *Controller) beginGenerating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generating {
		return false
	}
	c.generating = true
	return true
}

func (c *Controller) endGenerating() {
	c.mu.Lock()
	c.generating = false
	c.mu.Unlock()
}

// Status returns a snapshot safe to read concurrently with an in-flight
// cycle.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		CurrentRound:    c.currentRound,
		NextRound:       c.seq.NextToGenerate(),
		Generating:      c.generating,
		BufferedRounds:  c.seq.BufferLen(),
		LastQueueCheck:  c.lastQueueCheck,
		BatchSize:       c.cfg.Batch.Size,
		QueueThreshold:  c.cfg.Batch.QueueThreshold,
		CheckInterval:   c.cfg.Batch.CheckInterval.String(),
		RoundsGenerated: c.seq.Tracker().Rounds(),
		RealizedMean:    c.seq.Tracker().Mean(),
	}
}
