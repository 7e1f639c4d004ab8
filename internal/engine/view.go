package engine

// StateProjection is the public table state broadcast to every player.
// It never contains hand contents.
type StateProjection struct {
	CurrentCard        Card   `json:"currentCard"`
	CurrentColor       Color  `json:"currentColor"`
	CurrentPlayerIndex int    `json:"currentPlayerIndex"`
	DeckCount          int    `json:"deckCount"`
	DiscardPile        []Card `json:"discardPile"` // top card only
	Direction          int    `json:"direction"`
	Winner             string `json:"winner,omitempty"`
}

func (g *Game) StateProjection() StateProjection {
	sp := StateProjection{
		CurrentCard:        g.currentCard,
		CurrentColor:       g.currentColor,
		CurrentPlayerIndex: g.currentIndex,
		Direction:          g.direction,
	}
	if g.deck != nil {
		sp.DeckCount = g.deck.Len()
		sp.DiscardPile = []Card{g.currentCard}
	}
	if name, ok := g.Winner(); ok {
		sp.Winner = name
	}
	return sp
}
