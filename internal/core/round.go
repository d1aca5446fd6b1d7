package core

import "time"

// Round is one game outcome. Immutable once persisted; RoundNumber is
// globally unique and never reused.
type Round struct {
	RoundNumber uint64    `json:"round_number"`
	Multiplier  float64   `json:"multiplier"`
	CreatedAt   time.Time `json:"created_at"`
}
