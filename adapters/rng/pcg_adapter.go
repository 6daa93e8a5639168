package rng

import (
	"math/rand/v2"

	"causalbench/ports"
)

// pcgStream is the fixed PCG increment. Seeds select the stream state; the
// increment never changes so a seed always maps to the same sequence.
const pcgStream = 0x9e3779b97f4a7c15

// PCGAdapter implements ports.RNGPort with math/rand/v2 PCG sources
type PCGAdapter struct{}

// NewPCGAdapter creates a new PCG-backed RNG adapter
func NewPCGAdapter() *PCGAdapter {
	return &PCGAdapter{}
}

// Source returns a PCG source seeded from seed
func (a *PCGAdapter) Source(seed int64) rand.Source {
	return rand.NewPCG(uint64(seed), pcgStream)
}

var _ ports.RNGPort = (*PCGAdapter)(nil)
