package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"PriceSim/internal/domain/models"
)

func window(prices ...float64) models.RollingHistory {
	h := models.RollingHistory{AssetID: "X", Capacity: 60}
	for i, p := range prices {
		h.Points = append(h.Points, models.Quote{AssetID: "X", ObservedAt: int64(i * 60), Price: p})
	}
	return h
}

func TestEstimateColdStart(t *testing.T) {
	e := NewEstimator(DefaultVolatilityFloor)
	for _, h := range []models.RollingHistory{window(), window(123)} {
		p := e.Estimate(h)
		assert.Equal(t, 0.0, p.MeanReturn)
		assert.Equal(t, 0.0, p.Trend)
		assert.Equal(t, 0.02, p.Volatility)
	}
}

func TestEstimateTwoPoints(t *testing.T) {
	p := NewEstimator(0.02).Estimate(window(100, 105))
	assert.InDelta(t, 0.05, p.MeanReturn, 1e-12)
	assert.InDelta(t, 0.05, p.Trend, 1e-12)
	assert.Equal(t, 0.02, p.Volatility)
}

func TestEstimateSampleStdDev(t *testing.T) {
	p := NewEstimator(0.02).Estimate(window(100, 110, 99, 99))
	// returns: 0.1, -0.1, 0
	assert.InDelta(t, 0.0, p.MeanReturn, 1e-12)
	assert.InDelta(t, 0.1, p.Volatility, 1e-12)
	assert.InDelta(t, -0.01, p.Trend, 1e-12)
}

func TestEstimateFlatWindowHasZeroVolatility(t *testing.T) {
	p := NewEstimator(0.02).Estimate(window(50, 50, 50, 50))
	assert.Equal(t, 0.0, p.Volatility)
	assert.Equal(t, 0.0, p.MeanReturn)
}

func TestHelpers(t *testing.T) {
	assert.Nil(t, StepReturns([]float64{1}))
	assert.Equal(t, []float64{1}, StepReturns([]float64{0, 5, 10}))
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, SampleStdDev([]float64{3}))
	assert.InDelta(t, math.Sqrt(2), SampleStdDev([]float64{1, 3}), 1e-12)
	assert.Equal(t, 0.0, Trend([]float64{0, 4}))
}
