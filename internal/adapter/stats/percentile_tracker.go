package stats

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// ReservoirSampler keeps a fixed-size uniform sample of rebuild latencies
// so percentiles stay cheap however many rebuilds run
type ReservoirSampler struct {
	samples    []int64
	sampleSize int
	count      int64
	mu         sync.Mutex
}

// NewReservoirSampler creates a new reservoir sampler with the specified sample size
func NewReservoirSampler(sampleSize int) *ReservoirSampler {
	if sampleSize <= 0 {
		sampleSize = 100 // Default to 100 samples
	}
	return &ReservoirSampler{
		sampleSize: sampleSize,
		samples:    make([]int64, 0, sampleSize), // Start with empty slice, grow as needed
	}
}

func (rs *ReservoirSampler) Add(value int64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.count++

	// Fill reservoir array until it's full
	if len(rs.samples) < rs.sampleSize {
		rs.samples = append(rs.samples, value)
		return
	}

	j := rand.Int64N(rs.count) //nolint:gosec // Statistical sampling doesn't require crypto rand
	if j < int64(rs.sampleSize) {
		rs.samples[j] = value
	}
}

// GetPercentiles returns the 50th, 95th, and 99th percentiles
func (rs *ReservoirSampler) GetPercentiles() (p50, p95, p99 int64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if len(rs.samples) == 0 {
		return 0, 0, 0
	}

	sorted := make([]int64, len(rs.samples))
	copy(sorted, rs.samples)
	slices.Sort(sorted)

	return percentile(sorted, 50), percentile(sorted, 95), percentile(sorted, 99)
}

func percentile(sorted []int64, p int) int64 {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Count returns the total number of values added
func (rs *ReservoirSampler) Count() int64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.count
}

// Reset clears all samples and resets the counter
func (rs *ReservoirSampler) Reset() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.samples = rs.samples[:0] // Keep capacity, clear length
	rs.count = 0
}
