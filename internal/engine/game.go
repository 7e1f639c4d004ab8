package engine

import (
	"fmt"
	"math/rand/v2"
)

const (
	MinPlayers = 2
	MaxPlayers = 4
)

// Game holds one room's authoritative state. It is not safe for concurrent
// use; the owning room serializes access.
type Game struct {
	config GameConfig
	rng    *rand.Rand

	players []*Player
	deck    *Deck
	discard []Card

	phase        GamePhase
	currentIndex int
	direction    int
	currentCard  Card
	currentColor Color
	winner       *Player
	moves        int
}

// NewGame creates an engine that still needs InitGame.
func NewGame(config GameConfig) *Game {
	if config.Cards == nil {
		config.Cards = BuildCards()
	}
	if config.HandSize <= 0 {
		config.HandSize = HandSize
	}
	rng := config.Rand
	if rng == nil {
		rng = NewRand(0)
	}
	return &Game{config: config, rng: rng, phase: PhaseNew, direction: 1}
}

// InitGame binds the roster, shuffles, deals and turns up the first
// non-wild card.
func (g *Game) InitGame(players []*Player) error {
	if g.phase != PhaseNew {
		return ErrAlreadyInitialized
	}
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return fmt.Errorf("%w: got %d", ErrRosterSize, len(players))
	}

	deck := NewDeck(g.config.Cards, g.rng)
	if !g.config.NoShuffle {
		deck.Shuffle()
	}
	if err := deck.Deal(players, g.config.HandSize); err != nil {
		return fmt.Errorf("deal: %w", err)
	}

	// Wild cards go back under the deck until a colored card turns up.
	var opening *Card
	for tries := deck.Len(); tries > 0; tries-- {
		c := deck.take(1)[0]
		if !c.IsWild() {
			opening = &c
			break
		}
		deck.Return(c)
	}
	if opening == nil {
		return fmt.Errorf("opening card: %w", ErrInsufficientCards)
	}

	g.players = players
	g.deck = deck
	g.discard = []Card{*opening}
	g.currentCard = *opening
	g.currentColor = opening.Color
	g.currentIndex = 0
	g.direction = 1
	g.phase = PhaseAwaitingMove
	return nil
}

// IsValidMove reports whether card may be played on the current table.
func (g *Game) IsValidMove(card Card) bool {
	if card.IsWild() {
		return true
	}
	return card.Color == g.currentColor || card.Value == g.currentCard.Value
}

// PlayCard plays the card at cardIndex from playerID's hand. chosen is the
// declared color for wild cards and is ignored otherwise; the caller must
// pass a base color for wilds.
func (g *Game) PlayCard(playerID string, cardIndex int, chosen Color) (Result, error) {
	p, err := g.turnPlayer(playerID)
	if err != nil {
		return Result{}, err
	}
	if cardIndex < 0 || cardIndex >= len(p.Hand) {
		return Result{}, fmt.Errorf("%w: no card at index %d", ErrInvalidMove, cardIndex)
	}
	card := p.Hand[cardIndex]
	if !g.IsValidMove(card) {
		return Result{}, ErrInvalidMove
	}

	p.removeCard(cardIndex)
	g.currentCard = card
	g.currentColor = card.Color
	if card.IsWild() {
		g.currentColor = chosen
	}
	// The forced draw may reshuffle the discard history, so the played card
	// is pushed only after its effect has been applied.
	if fx, ok := effects[card.Value]; ok {
		fx(g, card)
	}
	g.discard = append(g.discard, card)
	g.moves++

	res := Result{Type: ActionPlay, PlayerID: p.ID, Card: &card}
	if len(p.Hand) == 0 {
		g.phase = PhaseResolved
		g.winner = p
		res.Winner = p.Name
		return res, nil
	}
	g.NextTurn()
	return res, nil
}

// DrawCard gives the current player one card and ends their turn.
func (g *Game) DrawCard(playerID string) (Result, error) {
	p, err := g.turnPlayer(playerID)
	if err != nil {
		return Result{}, err
	}
	p.Hand = append(p.Hand, g.DrawFromDeck(1)...)
	g.moves++
	g.NextTurn()
	return Result{Type: ActionDraw, PlayerID: p.ID}, nil
}

// DrawFromDeck removes n cards from the deck, first recycling every discard
// but the top one when the deck is short. It returns fewer than n cards only
// when deck and discard history together cannot cover the request.
func (g *Game) DrawFromDeck(n int) []Card {
	if g.deck.Len() < n {
		g.reshuffle()
	}
	return g.deck.take(n)
}

func (g *Game) reshuffle() {
	if len(g.discard) == 0 {
		return
	}
	last := len(g.discard) - 1
	top := g.discard[last]
	g.deck.Return(g.discard[:last]...)
	g.deck.Shuffle()
	g.discard = []Card{top}
}

// NextTurn advances the turn pointer one step in the current direction.
func (g *Game) NextTurn() {
	n := len(g.players)
	g.currentIndex = (g.currentIndex + g.direction + n) % n
}

// turnPlayer resolves playerID and checks it holds the turn.
func (g *Game) turnPlayer(playerID string) (*Player, error) {
	switch g.phase {
	case PhaseNew:
		return nil, ErrNotInitialized
	case PhaseResolved:
		return nil, ErrGameOver
	}
	p := g.players[g.currentIndex]
	if p.ID != playerID {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

func (g *Game) getPlayer(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Read-only query surface.

func (g *Game) Phase() GamePhase    { return g.phase }
func (g *Game) CurrentIndex() int   { return g.currentIndex }
func (g *Game) Direction() int      { return g.direction }
func (g *Game) CurrentCard() Card   { return g.currentCard }
func (g *Game) CurrentColor() Color { return g.currentColor }
func (g *Game) DeckCount() int      { return g.deck.Len() }
func (g *Game) DiscardCount() int   { return len(g.discard) }
func (g *Game) Moves() int          { return g.moves }

// CurrentPlayer returns the summary of the player holding the turn.
func (g *Game) CurrentPlayer() (Summary, bool) {
	if g.phase == PhaseNew {
		return Summary{}, false
	}
	return g.players[g.currentIndex].Summary(), true
}

// Hand returns a copy of the player's hand.
func (g *Game) Hand(playerID string) ([]Card, error) {
	p := g.getPlayer(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	out := make([]Card, len(p.Hand))
	copy(out, p.Hand)
	return out, nil
}

// Roster returns the public summary of every player in turn order.
func (g *Game) Roster() []Summary {
	out := make([]Summary, len(g.players))
	for i, p := range g.players {
		out[i] = p.Summary()
	}
	return out
}

// Winner returns the winning player's name, if any.
func (g *Game) Winner() (string, bool) {
	if g.winner == nil {
		return "", false
	}
	return g.winner.Name, true
}
