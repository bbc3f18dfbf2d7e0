package simulator

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Seed derives the per-asset seed for a cycle. Distinct assets in the same
// cycle, and the same asset in distinct cycles, get distinct seeds.
func Seed(cycle time.Time, assetID string) uint64 {
	return xxhash.Sum64String(strconv.FormatInt(cycle.Unix(), 10) + "|" + assetID)
}

// Draw returns n Gaussian increments with mean 0 and standard deviation
// sqrt(dt). It owns its generator, so calls are independent and repeatable.
func Draw(seed uint64, n int, dt float64) []float64 {
	if n <= 0 {
		return nil
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	std := math.Sqrt(math.Max(dt, 0))
	out := make([]float64, n)
	for i := range out {
		out[i] = r.NormFloat64() * std
	}
	return out
}
