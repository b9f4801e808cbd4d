package prediction

import (
	"math/rand/v2"
	"sync"
	"time"
)

// JitterSource yields values in [0, 1).
type JitterSource interface {
	Float64() float64
}

// LockedSource is a seeded JitterSource safe for concurrent use.
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource constructs a deterministic source for seed.
func NewSeededSource(seed uint64) *LockedSource {
	return &LockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeededSource constructs a source seeded from the wall clock.
func NewTimeSeededSource() *LockedSource {
	return NewSeededSource(uint64(time.Now().UnixNano()))
}

// Float64 returns the next value in [0, 1).
func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// FixedSource always yields the same value. Useful for pinning weights.
type FixedSource float64

// Float64 returns the fixed value.
func (f FixedSource) Float64() float64 {
	return float64(f)
}
