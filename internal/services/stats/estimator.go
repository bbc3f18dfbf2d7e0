package stats

import (
	"math"

	"PriceSim/internal/domain/models"
)

const DefaultVolatilityFloor = 0.02

// Estimator derives drift, volatility and trend from a rolling window.
type Estimator struct {
	// VolatilityFloor is used when fewer than two returns are available.
	VolatilityFloor float64
}

func NewEstimator(volatilityFloor float64) Estimator {
	return Estimator{VolatilityFloor: volatilityFloor}
}

// Estimate never fails: short windows yield the cold-start defaults.
func (e Estimator) Estimate(h models.RollingHistory) models.EstimatedParameters {
	prices := h.Prices()
	returns := StepReturns(prices)

	p := models.EstimatedParameters{
		MeanReturn: Mean(returns),
		Volatility: e.VolatilityFloor,
		Trend:      Trend(prices),
	}
	if len(returns) >= 2 {
		p.Volatility = SampleStdDev(returns)
	}
	return p
}

// StepReturns computes r_i = (p_i - p_{i-1}) / p_{i-1}. Pairs with a
// non-positive base are skipped.
func StepReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev <= 0 {
			continue
		}
		out = append(out, (prices[i]-prev)/prev)
	}
	return out
}

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStdDev uses the n-1 denominator. Fewer than two values yield 0.
func SampleStdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Trend is the net relative change over the full window.
func Trend(prices []float64) float64 {
	if len(prices) < 2 || prices[0] <= 0 {
		return 0
	}
	first, last := prices[0], prices[len(prices)-1]
	return (last - first) / first
}
