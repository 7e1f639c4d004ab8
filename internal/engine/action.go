package engine

// ActionType identifies the two moves a player can make.
type ActionType string

const (
	ActionPlay ActionType = "play"
	ActionDraw ActionType = "draw"
)

// Move is a decided but not yet applied action, as produced by a bot.
type Move struct {
	Type      ActionType `json:"action"`
	CardIndex int        `json:"cardIndex,omitempty"`
	Color     Color      `json:"color,omitempty"`
}

// Result describes an accepted action. Card is set for plays only; the
// card taken by a draw stays private to the drawing player's hand.
type Result struct {
	Type     ActionType
	PlayerID string
	Card     *Card
	// Winner is the acting player's name when the play emptied their hand.
	Winner string
}

// effect is applied right after a card is played, before the normal advance.
type effect func(g *Game, played Card)

var effects = map[Value]effect{
	ValueSkip: func(g *Game, _ Card) {
		g.NextTurn()
	},
	ValueReverse: func(g *Game, _ Card) {
		// With two players reversing changes nothing, so it skips instead.
		if len(g.players) == 2 {
			g.NextTurn()
			return
		}
		g.direction = -g.direction
	},
	ValueDraw2: forceDraw,
	ValueDraw4: forceDraw,
}

// forceDraw makes the next player draw the card's penalty. The caller's own
// advance then moves past them.
func forceDraw(g *Game, played Card) {
	g.NextTurn()
	victim := g.players[g.currentIndex]
	victim.Hand = append(victim.Hand, g.DrawFromDeck(played.DrawPenalty())...)
}
