package engine

import "math/rand/v2"

const (
	// DeckSize is the number of cards in a freshly built deck.
	DeckSize = 84
	// HandSize is the number of cards dealt to each player.
	HandSize = 7
)

// BuildCards returns the unshuffled card set: per color one 0 and two each of
// 1-9, skip, reverse, draw2, followed by four wild and four draw4 cards.
func BuildCards() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, color := range BaseColors {
		for _, v := range colorValues {
			cards = append(cards, Card{Color: color, Value: v})
			if v != Value0 {
				cards = append(cards, Card{Color: color, Value: v})
			}
		}
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, Card{Color: ColorWild, Value: ValueWild})
		cards = append(cards, Card{Color: ColorWild, Value: ValueDraw4})
	}
	return cards
}

// Deck is a stack of cards drawn from the front.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates an unshuffled deck holding a copy of cards.
func NewDeck(cards []Card, rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, len(cards)), rng: rng}
	copy(d.cards, cards)
	return d
}

// Shuffle permutes the deck in place (Fisher-Yates).
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top n cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrInsufficientCards
	}
	return d.take(n), nil
}

// take removes up to n cards from the front.
func (d *Deck) take(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	drawn := make([]Card, n)
	copy(drawn, d.cards[:n])
	d.cards = d.cards[n:]
	return drawn
}

// Deal gives handSize cards to each player in roster order.
func (d *Deck) Deal(players []*Player, handSize int) error {
	if handSize*len(players) > len(d.cards) {
		return ErrInsufficientCards
	}
	for _, p := range players {
		p.Hand = d.take(handSize)
	}
	return nil
}

// Return puts cards back at the bottom of the deck.
func (d *Deck) Return(cards ...Card) {
	d.cards = append(d.cards, cards...)
}

// Len returns the number of cards remaining.
func (d *Deck) Len() int {
	return len(d.cards)
}
