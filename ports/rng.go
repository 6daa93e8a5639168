package ports

import (
	"math/rand/v2"
)

// RNGPort provides seeded random sources for deterministic sampling
type RNGPort interface {
	// Source returns a fresh source whose whole output stream is a function
	// of seed. Two calls with the same seed must yield identical streams.
	Source(seed int64) rand.Source
}
