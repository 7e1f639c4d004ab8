// Package bot decides moves for computer-controlled players.
package bot

import (
	"math/rand/v2"
	"sync"

	"unoserver/internal/engine"
)

// Table is the read-only engine surface a bot may look at.
type Table interface {
	Hand(playerID string) ([]engine.Card, error)
	IsValidMove(card engine.Card) bool
}

// Strategist plays the first legal card in hand order and draws when there
// is none. Wild cards get a uniformly random base color.
type Strategist struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewStrategist(rng *rand.Rand) *Strategist {
	if rng == nil {
		rng = engine.NewRand(0)
	}
	return &Strategist{rng: rng}
}

// Move returns the bot's intent without applying it.
func (s *Strategist) Move(t Table, botID string) (engine.Move, error) {
	hand, err := t.Hand(botID)
	if err != nil {
		return engine.Move{}, err
	}
	for i, c := range hand {
		if !t.IsValidMove(c) {
			continue
		}
		move := engine.Move{Type: engine.ActionPlay, CardIndex: i, Color: c.Color}
		if c.IsWild() {
			move.Color = s.pickColor()
		}
		return move, nil
	}
	return engine.Move{Type: engine.ActionDraw}, nil
}

func (s *Strategist) pickColor() engine.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.BaseColors[s.rng.IntN(len(engine.BaseColors))]
}
