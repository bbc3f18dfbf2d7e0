package simulator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"PriceSim/internal/domain/models"
)

var ErrInvalidStartPrice = errors.New("simulator: start price must be positive")

// Config holds the process parameters. New replaces missing durations and
// out-of-range fractions with defaults.
type Config struct {
	HorizonSteps int
	StepDuration time.Duration
	// SampleInterval is the spacing of the history the parameters were
	// estimated from; dt is StepDuration expressed in these units.
	SampleInterval     time.Duration
	Amplification      float64
	MaxStepFraction    float64
	PriceFloorFraction float64
	PricePrecision     int32
}

func DefaultConfig() Config {
	return Config{
		HorizonSteps:       60,
		StepDuration:       time.Minute,
		SampleInterval:     time.Minute,
		Amplification:      2,
		MaxStepFraction:    0.05,
		PriceFloorFraction: 0.5,
		PricePrecision:     2,
	}
}

// Simulator generates discretised geometric growth paths.
type Simulator struct {
	cfg Config
}

func New(cfg Config) *Simulator {
	def := DefaultConfig()
	if cfg.HorizonSteps <= 0 {
		cfg.HorizonSteps = def.HorizonSteps
	}
	if cfg.StepDuration <= 0 {
		cfg.StepDuration = def.StepDuration
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = cfg.StepDuration
	}
	if cfg.MaxStepFraction <= 0 || cfg.MaxStepFraction >= 1 {
		cfg.MaxStepFraction = def.MaxStepFraction
	}
	if cfg.PriceFloorFraction <= 0 || cfg.PriceFloorFraction > 1 {
		cfg.PriceFloorFraction = def.PriceFloorFraction
	}
	if cfg.Amplification < 0 {
		cfg.Amplification = def.Amplification
	}
	if cfg.PricePrecision < 0 {
		cfg.PricePrecision = def.PricePrecision
	}
	return &Simulator{cfg: cfg}
}

func (s *Simulator) Config() Config { return s.cfg }

// Dt is the step duration as a fraction of the estimation reference period.
func (s *Simulator) Dt() float64 {
	return float64(s.cfg.StepDuration) / float64(s.cfg.SampleInterval)
}

// Simulate returns HorizonSteps prices following start. The output is a pure
// function of (start, params, seed).
//
// Each step is clamped to within MaxStepFraction of the previous price and
// floored at PriceFloorFraction of start. The floor never exceeds the
// previous price, so the clamp bound still holds after flooring.
func (s *Simulator) Simulate(start float64, params models.EstimatedParameters, seed uint64) ([]float64, error) {
	if !(start > 0) || math.IsInf(start, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidStartPrice, start)
	}

	n := s.cfg.HorizonSteps
	dt := s.Dt()
	drift := params.MeanReturn*dt + params.Trend/float64(n)
	sigma := params.Volatility * s.cfg.Amplification
	noise := Draw(seed, n, dt)
	floor := start * s.cfg.PriceFloorFraction
	m := s.cfg.MaxStepFraction

	out := make([]float64, n)
	prev := start
	for i := 0; i < n; i++ {
		next := prev + drift*prev + sigma*prev*noise[i]
		if math.IsNaN(next) {
			next = prev
		}
		next = math.Min(math.Max(next, prev*(1-m)), prev*(1+m))
		next = math.Max(next, floor)
		out[i] = next
		prev = next
	}
	return out, nil
}

// BuildPath rounds a raw price sequence and attaches step timestamps and the
// period summary. Step i (1-based) is stamped horizonStart + i*StepDuration.
//
// Rounding happens step by step on the PricePrecision grid: each point is
// re-clamped against the rounded previous point, so the step bound and the
// floor hold for the published prices and not only for the raw ones.
func (s *Simulator) BuildPath(start float64, prices []float64, params models.EstimatedParameters, horizonStart time.Time, seed uint64) models.SimulatedPath {
	step := s.cfg.StepDuration
	prec := s.cfg.PricePrecision

	path := models.SimulatedPath{
		StartTimestamp: horizonStart.Unix(),
		StepSeconds:    int64(step / time.Second),
		Prices:         make([]models.PricePoint, len(prices)),
		StartPrice:     RoundPrice(start, prec),
		Basis:          params,
		Seed:           seed,
	}

	floor := start * s.cfg.PriceFloorFraction
	prev := path.StartPrice
	high, low := prev, prev
	for i, p := range prices {
		next := s.quantize(prev, p, floor)
		path.Prices[i] = models.PricePoint{
			StepIndex: i + 1,
			Timestamp: horizonStart.Add(time.Duration(i+1) * step).Unix(),
			Price:     next,
		}
		high = math.Max(high, next)
		low = math.Min(low, next)
		prev = next
	}

	path.EndPrice = prev
	path.PeriodHigh = high
	path.PeriodLow = low
	path.PeriodChange, path.PeriodChangePercent = Change(path.StartPrice, path.EndPrice, prec)
	return path
}

// quantize rounds p and keeps it inside [prev*(1-m), prev*(1+m)] with bounds
// rounded inward. When the grid is too coarse for the bound at this price
// level the clamped value is returned unrounded.
func (s *Simulator) quantize(prev, p, floor float64) float64 {
	m := s.cfg.MaxStepFraction
	prec := s.cfg.PricePrecision

	rawLo, rawHi := prev*(1-m), prev*(1+m)
	lo, hi := RoundUp(rawLo, prec), RoundDown(rawHi, prec)
	if lo <= 0 || lo > hi {
		return math.Max(math.Min(math.Max(p, rawLo), rawHi), floor)
	}

	next := math.Min(math.Max(RoundPrice(p, prec), lo), hi)
	if fl := RoundUp(floor, prec); fl <= hi {
		next = math.Max(next, fl)
	}
	return next
}
