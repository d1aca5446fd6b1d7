package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine EngineConfig `yaml:"engine"`
}

type EngineConfig struct {
	HTTPPort   int              `yaml:"http_port"`
	Generation GenerationConfig `yaml:"generation"`
	Batch      BatchConfig      `yaml:"batch"`
	Downstream DownstreamConfig `yaml:"downstream"`
	NATS       NATSConfig       `yaml:"nats"`
	Storage    StorageConfig    `yaml:"storage"`
}

type GenerationConfig struct {
	HouseEdge     float64       `yaml:"house_edge"`
	MinMultiplier float64       `yaml:"min_multiplier"`
	MaxMultiplier float64       `yaml:"max_multiplier"`
	StartRound    uint64        `yaml:"start_round"`
	HistorySize   int           `yaml:"history_size"`
	TailTiers     []TailTier    `yaml:"tail_tiers"`
	Pattern       PatternConfig `yaml:"pattern"`
	Relief        ReliefConfig  `yaml:"relief"`
}

// TailTier is a rare high-magnitude override band. Tiers are checked in
// declaration order, so they must be sorted by decreasing chance.
type TailTier struct {
	Chance float64 `yaml:"chance"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

type PatternConfig struct {
	ModuloEvery   uint64  `yaml:"modulo_every"`
	ModuloChance  float64 `yaml:"modulo_chance"`
	JitterBand    float64 `yaml:"jitter_band"`
	OscAmplitude  float64 `yaml:"osc_amplitude"`
	DampThreshold float64 `yaml:"damp_threshold"`
	DampWindow    int     `yaml:"damp_window"`
	DampAfter     int     `yaml:"damp_after"`
	DampMin       float64 `yaml:"damp_min"`
	DampMax       float64 `yaml:"damp_max"`
}

type ReliefConfig struct {
	FloorBand      float64 `yaml:"floor_band"`
	FloorStreak    int     `yaml:"floor_streak"`
	SevereMin      float64 `yaml:"severe_min"`
	SevereMax      float64 `yaml:"severe_max"`
	LowThreshold   float64 `yaml:"low_threshold"`
	LowStreak      int     `yaml:"low_streak"`
	ModerateMin    float64 `yaml:"moderate_min"`
	ModerateMax    float64 `yaml:"moderate_max"`
	LowRatio       float64 `yaml:"low_ratio"`
	LowRatioWindow int     `yaml:"low_ratio_window"`
	MildMin        float64 `yaml:"mild_min"`
	MildMax        float64 `yaml:"mild_max"`
}

type BatchConfig struct {
	Size           int           `yaml:"size"`
	QueueThreshold int           `yaml:"queue_threshold"`
	CheckInterval  time.Duration `yaml:"check_interval"`
}

type DownstreamConfig struct {
	URL            string        `yaml:"url"`
	Token          string        `yaml:"token"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type StorageConfig struct {
	Directory string `yaml:"directory"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	config.Engine.ApplyDefaults()
	if err := config.Engine.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyDefaults fills zero-valued fields so a minimal config file is usable.
func (e *EngineConfig) ApplyDefaults() {
	g := &e.Generation
	if g.HouseEdge == 0 {
		g.HouseEdge = 0.1
	}
	if g.MinMultiplier == 0 {
		g.MinMultiplier = 1.01
	}
	if g.MaxMultiplier == 0 {
		g.MaxMultiplier = 500
	}
	if g.HistorySize == 0 {
		g.HistorySize = 100
	}
	if len(g.TailTiers) == 0 {
		g.TailTiers = []TailTier{
			{Chance: 0.0001, Min: 100, Max: 500},
			{Chance: 0.0005, Min: 50, Max: 100},
			{Chance: 0.002, Min: 20, Max: 50},
		}
	}

	p := &g.Pattern
	if p.ModuloEvery == 0 {
		p.ModuloEvery = 50
	}
	if p.ModuloChance == 0 {
		p.ModuloChance = 0.5
	}
	if p.JitterBand == 0 {
		p.JitterBand = 0.05
	}
	if p.OscAmplitude == 0 {
		p.OscAmplitude = 0.02
	}
	if p.DampThreshold == 0 {
		p.DampThreshold = 10
	}
	if p.DampWindow == 0 {
		p.DampWindow = 10
	}
	if p.DampAfter == 0 {
		p.DampAfter = 3
	}
	if p.DampMin == 0 {
		p.DampMin = 0.2
	}
	if p.DampMax == 0 {
		p.DampMax = 0.7
	}

	r := &g.Relief
	if r.FloorBand == 0 {
		r.FloorBand = 1.10
	}
	if r.FloorStreak == 0 {
		r.FloorStreak = 3
	}
	if r.SevereMin == 0 {
		r.SevereMin = 3
	}
	if r.SevereMax == 0 {
		r.SevereMax = 8
	}
	if r.LowThreshold == 0 {
		r.LowThreshold = 1.5
	}
	if r.LowStreak == 0 {
		r.LowStreak = 5
	}
	if r.ModerateMin == 0 {
		r.ModerateMin = 2
	}
	if r.ModerateMax == 0 {
		r.ModerateMax = 4
	}
	if r.LowRatio == 0 {
		r.LowRatio = 0.7
	}
	if r.LowRatioWindow == 0 {
		r.LowRatioWindow = 20
	}
	if r.MildMin == 0 {
		r.MildMin = 1.5
	}
	if r.MildMax == 0 {
		r.MildMax = 2.5
	}

	if e.Batch.Size == 0 {
		e.Batch.Size = 10
	}
	if e.Batch.QueueThreshold == 0 {
		e.Batch.QueueThreshold = 5
	}
	if e.Batch.CheckInterval == 0 {
		e.Batch.CheckInterval = 10 * time.Second
	}

	if e.Downstream.RequestTimeout == 0 {
		e.Downstream.RequestTimeout = 5 * time.Second
	}
	if e.NATS.SubjectPrefix == "" {
		e.NATS.SubjectPrefix = "engine"
	}
	if e.Storage.Directory == "" {
		e.Storage.Directory = "data/rounds"
	}
	if e.HTTPPort == 0 {
		e.HTTPPort = 8090
	}
}

func (e *EngineConfig) Validate() error {
	g := e.Generation
	if g.HouseEdge <= 0 || g.HouseEdge >= 1 {
		return fmt.Errorf("house_edge must be in (0,1), got %v", g.HouseEdge)
	}
	if g.MinMultiplier < 1 {
		return fmt.Errorf("min_multiplier must be >= 1, got %v", g.MinMultiplier)
	}
	if g.MaxMultiplier <= g.MinMultiplier {
		return fmt.Errorf("max_multiplier must exceed min_multiplier")
	}
	for i, tier := range g.TailTiers {
		if tier.Chance <= 0 || tier.Chance >= 1 {
			return fmt.Errorf("tail tier %d: chance must be in (0,1)", i)
		}
		if tier.Max <= tier.Min {
			return fmt.Errorf("tail tier %d: max must exceed min", i)
		}
	}
	if e.Batch.Size <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if e.Batch.QueueThreshold < 0 {
		return fmt.Errorf("queue_threshold must not be negative")
	}
	return nil
}
