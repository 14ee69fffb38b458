package utils

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// RandSource is a seeded, mutex-guarded random number generator.
type RandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// Seed 0 draws from the wall clock.
func NewRandSource(seed uint64) *RandSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandSource{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// UniformFloat64 returns a uniformly distributed random number in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

var defaultRand = NewRandSource(0)

// Float64 returns a random float64 from the default source
func Float64() float64 {
	return defaultRand.Float64()
}
