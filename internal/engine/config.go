package engine

import (
	"math/rand/v2"
	"time"
)

// GameConfig holds configuration for creating a new game.
type GameConfig struct {
	Cards    []Card     // card pool, BuildCards() when nil
	HandSize int        // cards dealt per player (default 7)
	Rand     *rand.Rand // shuffle source, time-seeded when nil
	// NoShuffle deals Cards in the given order. Reshuffles on exhaustion
	// still use Rand.
	NoShuffle bool
}

func DefaultConfig() GameConfig {
	return GameConfig{
		Cards:    BuildCards(),
		HandSize: HandSize,
	}
}

// NewRand returns a PCG-backed source. A zero seed means time-based.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
