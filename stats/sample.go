package stats

import (
	"math/rand/v2"
	"time"
)

// SampleSize returns how many rows ANALYZE samples from a table of n rows.
func SampleSize(n int) int {
	switch {
	case n <= 1000:
		return n
	case n <= 10000:
		return 1000
	case n <= 100000:
		return 5000
	default:
		return 10000
	}
}

// Sampler picks the row positions a histogram is built from.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler drawing from src.
func NewSampler(src rand.Source) *Sampler {
	return &Sampler{rng: rand.New(src)}
}

// NewSeededSampler returns a sampler over a PCG source. A zero seed is
// replaced by the current time.
func NewSeededSampler(seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewSampler(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

// Sample returns SampleSize(n) row positions in [0, n). Small tables are
// used whole, in order; larger ones are drawn uniformly with replacement.
func (s *Sampler) Sample(n int) []int {
	size := SampleSize(n)
	positions := make([]int, size)
	if size == n {
		for i := range positions {
			positions[i] = i
		}
		return positions
	}
	for i := range positions {
		positions[i] = s.rng.IntN(n)
	}
	return positions
}
