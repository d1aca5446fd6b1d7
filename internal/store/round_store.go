package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spinforge/outcome-engine/internal/core"
	"github.com/spinforge/outcome-engine/internal/kvstore"
)

var (
	ErrRoundNotFound = errors.New("store: round not found")
	ErrEmptyBatch    = errors.New("store: empty batch")
)

const (
	maxRoundKey    = "max_round"
	lastInsertKey  = "last_insert_round"
	roundKeyFormat = "round:%012d"
)

// RoundStore persists rounds as JSON records in a KVStore. A batch
// insert is one atomic transaction covering every row plus the
// max-round and insert-order markers, so it is idempotent on
// round_number and a failed insert leaves nothing behind.
type RoundStore struct {
	kv kvstore.KVStore
}

func NewRoundStore(kv kvstore.KVStore) *RoundStore {
	return &RoundStore{kv: kv}
}

func roundKey(n uint64) string {
	return fmt.Sprintf(roundKeyFormat, n)
}

func (rs *RoundStore) InsertBatch(rounds []core.Round) error {
	if len(rounds) == 0 {
		return ErrEmptyBatch
	}
	for i := 1; i < len(rounds); i++ {
		if rounds[i].RoundNumber != rounds[i-1].RoundNumber+1 {
			return fmt.Errorf("batch not contiguous at index %d: %d after %d",
				i, rounds[i].RoundNumber, rounds[i-1].RoundNumber)
		}
	}

	end := rounds[len(rounds)-1].RoundNumber
	pairs := make(map[string][]byte, len(rounds)+2)
	for _, r := range rounds {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal round %d: %w", r.RoundNumber, err)
		}
		pairs[roundKey(r.RoundNumber)] = data
	}

	max, ok, err := rs.MaxRoundNumber()
	if err != nil {
		return fmt.Errorf("read max round: %w", err)
	}
	if !ok || end > max {
		pairs[maxRoundKey] = []byte(strconv.FormatUint(end, 10))
	}
	pairs[lastInsertKey] = []byte(strconv.FormatUint(end, 10))

	return rs.kv.SetMulti(pairs)
}

// MaxRoundNumber returns the highest persisted round number. The second
// return value is false when nothing has been persisted yet.
func (rs *RoundStore) MaxRoundNumber() (uint64, bool, error) {
	data, err := rs.kv.Get(maxRoundKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse max round: %w", err)
	}
	return n, true, nil
}

// RangeExists reports whether any round in [start, end] is already
// persisted.
func (rs *RoundStore) RangeExists(start, end uint64) (bool, error) {
	for n := start; n <= end; n++ {
		ok, err := rs.kv.Has(roundKey(n))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (rs *RoundStore) GetByRound(n uint64) (*core.Round, error) {
	data, err := rs.kv.Get(roundKey(n))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	var r core.Round
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal round %d: %w", n, err)
	}
	return &r, nil
}

// GetRange returns all persisted rounds in [from, to] in round order.
// Absent rounds are skipped.
func (rs *RoundStore) GetRange(from, to uint64) ([]core.Round, error) {
	if to < from {
		return nil, fmt.Errorf("invalid range [%d, %d]", from, to)
	}
	rounds := make([]core.Round, 0, to-from+1)
	for n := from; n <= to; n++ {
		r, err := rs.GetByRound(n)
		if err != nil {
			if errors.Is(err, ErrRoundNotFound) {
				continue
			}
			return nil, err
		}
		rounds = append(rounds, *r)
	}
	return rounds, nil
}

// GetLatestByInsertOrder returns the last round of the most recent
// batch insert.
func (rs *RoundStore) GetLatestByInsertOrder() (*core.Round, error) {
	data, err := rs.kv.Get(lastInsertKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last insert round: %w", err)
	}
	return rs.GetByRound(n)
}

func (rs *RoundStore) Close() error {
	return rs.kv.Close()
}
