package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/spinforge/outcome-engine/internal/core"
)

type EngineEvent struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type batchData struct {
	StartRound uint64       `json:"start_round"`
	EndRound   uint64       `json:"end_round"`
	Rounds     []core.Round `json:"rounds"`
}

// Emitter publishes engine events to NATS. Best-effort only: the
// controller logs and drops emit failures.
type Emitter struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewEmitter(natsURL, subjectPrefix string) (*Emitter, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Emitter{
		conn:          conn,
		subjectPrefix: subjectPrefix,
	}, nil
}

func (e *Emitter) EmitBatch(startRound uint64, rounds []core.Round) error {
	if len(rounds) == 0 {
		return nil
	}
	return e.emit(e.subjectPrefix+".batch", EngineEvent{
		Type: "batch",
		Data: batchData{
			StartRound: startRound,
			EndRound:   rounds[len(rounds)-1].RoundNumber,
			Rounds:     rounds,
		},
		Timestamp: time.Now().UTC().Unix(),
	})
}

func (e *Emitter) EmitError(err error) error {
	payload := map[string]string{}
	if err != nil {
		payload["message"] = err.Error()
	}
	return e.emit(e.subjectPrefix+".error", EngineEvent{
		Type:      "error",
		Data:      payload,
		Timestamp: time.Now().UTC().Unix(),
	})
}

func (e *Emitter) emit(subject string, event EngineEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.conn.Publish(subject, data)
}

func (e *Emitter) Close() {
	if e.conn != nil {
		e.conn.Close()
	}
}
