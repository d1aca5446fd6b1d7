package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinforge/outcome-engine/internal/core"
	"github.com/spinforge/outcome-engine/internal/kvstore"
)

func newTestRoundStore(t *testing.T) *RoundStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "round_store_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	kv, err := kvstore.NewBadgerStore(tempDir)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return NewRoundStore(kv)
}

func makeBatch(start uint64, multipliers ...float64) []core.Round {
	rounds := make([]core.Round, 0, len(multipliers))
	for i, m := range multipliers {
		rounds = append(rounds, core.Round{
			RoundNumber: start + uint64(i),
			Multiplier:  m,
			CreatedAt:   time.Now().UTC(),
		})
	}
	return rounds
}

func TestRoundStoreInsertAndQuery(t *testing.T) {
	rs := newTestRoundStore(t)

	_, ok, err := rs.MaxRoundNumber()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, rs.InsertBatch(makeBatch(1, 1.5, 2.0, 1.01, 8.25, 3.6)))

	max, ok, err := rs.MaxRoundNumber()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(5), max)

	r, err := rs.GetByRound(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.RoundNumber)
	assert.Equal(t, 1.01, r.Multiplier)

	_, err = rs.GetByRound(42)
	assert.ErrorIs(t, err, ErrRoundNotFound)

	rounds, err := rs.GetRange(2, 4)
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	assert.Equal(t, uint64(2), rounds[0].RoundNumber)
	assert.Equal(t, uint64(4), rounds[2].RoundNumber)
}

func TestRoundStoreRangeExists(t *testing.T) {
	rs := newTestRoundStore(t)
	require.NoError(t, rs.InsertBatch(makeBatch(10, 1.5, 2.0, 3.0)))

	exists, err := rs.RangeExists(12, 15)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = rs.RangeExists(13, 20)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRoundStoreLatestByInsertOrder(t *testing.T) {
	rs := newTestRoundStore(t)

	_, err := rs.GetLatestByInsertOrder()
	assert.ErrorIs(t, err, ErrRoundNotFound)

	require.NoError(t, rs.InsertBatch(makeBatch(1, 1.5, 2.0)))
	require.NoError(t, rs.InsertBatch(makeBatch(3, 4.0, 5.0)))

	latest, err := rs.GetLatestByInsertOrder()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), latest.RoundNumber)
}

func TestRoundStoreInsertIsIdempotent(t *testing.T) {
	rs := newTestRoundStore(t)
	batch := makeBatch(1, 1.5, 2.0, 3.0)

	require.NoError(t, rs.InsertBatch(batch))
	require.NoError(t, rs.InsertBatch(batch))

	max, ok, err := rs.MaxRoundNumber()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(3), max)

	rounds, err := rs.GetRange(1, 3)
	require.NoError(t, err)
	assert.Len(t, rounds, 3)
}

func TestRoundStoreMaxRoundNeverRegresses(t *testing.T) {
	rs := newTestRoundStore(t)
	require.NoError(t, rs.InsertBatch(makeBatch(1, 1.5, 2.0, 3.0)))
	require.NoError(t, rs.InsertBatch(makeBatch(1, 1.5, 2.0)))

	max, _, err := rs.MaxRoundNumber()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), max)
}

func TestRoundStoreRejectsBadBatches(t *testing.T) {
	rs := newTestRoundStore(t)

	assert.ErrorIs(t, rs.InsertBatch(nil), ErrEmptyBatch)

	gap := []core.Round{
		{RoundNumber: 1, Multiplier: 1.5},
		{RoundNumber: 3, Multiplier: 2.0},
	}
	assert.Error(t, rs.InsertBatch(gap))
}
