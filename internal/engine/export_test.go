package engine

// SetTable replaces the deck and discard history of a dealt game.
func (g *Game) SetTable(deck, discard []Card, color Color) {
	g.deck = NewDeck(deck, g.rng)
	g.discard = append([]Card(nil), discard...)
	g.currentCard = discard[len(discard)-1]
	g.currentColor = color
}

func (g *Game) SetHand(playerID string, hand []Card) {
	g.getPlayer(playerID).Hand = append([]Card(nil), hand...)
}

func (g *Game) SetTurn(index, direction int) {
	g.currentIndex = index
	g.direction = direction
}

func (g *Game) DiscardHistory() []Card {
	return append([]Card(nil), g.discard...)
}
