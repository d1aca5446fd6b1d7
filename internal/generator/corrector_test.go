package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spinforge/outcome-engine/internal/config"
)

func testReliefConfig() config.ReliefConfig {
	return config.ReliefConfig{
		FloorBand:      1.10,
		FloorStreak:    3,
		SevereMin:      3,
		SevereMax:      8,
		LowThreshold:   1.5,
		LowStreak:      4,
		ModerateMin:    2,
		ModerateMax:    4,
		LowRatio:       0.7,
		LowRatioWindow: 10,
		MildMin:        1.5,
		MildMax:        2.5,
	}
}

func TestCorrectorSevereReliefAfterFloorStreak(t *testing.T) {
	h := NewHistory(100)
	for i := 0; i < 3; i++ {
		h.Append(1.01)
	}

	c := NewCorrector(testReliefConfig(), h, &scriptSource{values: []float64{0.5}})
	v := c.Correct(1.05)

	assert.InDelta(t, 5.5, v, 1e-9) // 3 + 0.5*(8-3)
	assert.Equal(t, 4, h.Len())
	assert.Equal(t, []float64{5.5}, h.Last(1))
}

func TestCorrectorModerateReliefAfterLowStreak(t *testing.T) {
	h := NewHistory(100)
	// low but above the floor band, so only the low-streak rule matches
	for i := 0; i < 4; i++ {
		h.Append(1.3)
	}

	c := NewCorrector(testReliefConfig(), h, &scriptSource{values: []float64{0.5}})
	v := c.Correct(1.2)

	assert.InDelta(t, 3.0, v, 1e-9) // 2 + 0.5*(4-2)
}

func TestCorrectorFirstMatchWins(t *testing.T) {
	h := NewHistory(100)
	// floor values are also low values; the severe tier must win
	for i := 0; i < 5; i++ {
		h.Append(1.01)
	}

	c := NewCorrector(testReliefConfig(), h, &scriptSource{values: []float64{0.0}})
	v := c.Correct(1.05)

	assert.Equal(t, 3.0, v) // severe band lower bound, not moderate
}

func TestCorrectorMildReliefOnElevatedLowRatio(t *testing.T) {
	h := NewHistory(100)
	// 7 of 10 low, runs broken so neither streak rule matches
	values := []float64{1.2, 1.2, 5.0, 1.2, 1.2, 6.0, 1.2, 1.2, 1.2, 7.0}
	for _, v := range values {
		h.Append(v)
	}

	c := NewCorrector(testReliefConfig(), h, &scriptSource{values: []float64{0.5}})
	v := c.Correct(1.3)

	assert.InDelta(t, 2.0, v, 1e-9) // 1.5 + 0.5*(2.5-1.5)
}

func TestCorrectorMildReliefSkippedWhenPendingIsHigh(t *testing.T) {
	h := NewHistory(100)
	values := []float64{1.2, 1.2, 5.0, 1.2, 1.2, 6.0, 1.2, 1.2, 1.2, 7.0}
	for _, v := range values {
		h.Append(v)
	}

	c := NewCorrector(testReliefConfig(), h, &scriptSource{})
	v := c.Correct(12.0)

	assert.Equal(t, 12.0, v)
}

func TestCorrectorNoReliefOnHealthyHistory(t *testing.T) {
	h := NewHistory(100)
	for _, val := range []float64{2.0, 5.5, 1.8, 3.3} {
		h.Append(val)
	}

	c := NewCorrector(testReliefConfig(), h, &scriptSource{})
	v := c.Correct(2.4)

	assert.Equal(t, 2.4, v)
}

func TestCorrectorRoundsToTwoDecimals(t *testing.T) {
	h := NewHistory(100)
	c := NewCorrector(config.ReliefConfig{}, h, &scriptSource{})

	assert.Equal(t, 1.23, c.Correct(1.23456))
	assert.Equal(t, 9.0, c.Correct(9.000000000000002))
}
