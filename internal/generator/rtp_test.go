package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRTPTrackerMean(t *testing.T) {
	tr := NewRTPTracker()
	assert.Equal(t, 0.0, tr.Mean())

	tr.Record(2.0)
	tr.Record(4.0)

	assert.Equal(t, int64(2), tr.Rounds())
	assert.InDelta(t, 3.0, tr.Mean(), 1e-9)
}

func TestRTPTrackerExactDecimalAccumulation(t *testing.T) {
	tr := NewRTPTracker()
	for i := 0; i < 10; i++ {
		tr.Record(1.1)
	}
	// float summation would drift; decimal accumulation must not
	assert.Equal(t, 1.1, tr.Mean())
}
