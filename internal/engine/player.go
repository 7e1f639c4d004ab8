package engine

// Player holds one participant's state. Hand is written only by the Game.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	IsBot bool   `json:"isBot"`
	Hand  []Card `json:"-"`
}

func NewPlayer(id, name string) *Player {
	return &Player{ID: id, Name: name}
}

func NewBot(id, name string) *Player {
	return &Player{ID: id, Name: name, IsBot: true}
}

// Summary is the roster entry every participant may see.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CardCount int    `json:"cardCount"`
	IsBot     bool   `json:"isBot"`
}

func (p *Player) Summary() Summary {
	return Summary{ID: p.ID, Name: p.Name, CardCount: len(p.Hand), IsBot: p.IsBot}
}

// removeCard takes the card at index i out of the hand.
func (p *Player) removeCard(i int) Card {
	c := p.Hand[i]
	p.Hand = append(p.Hand[:i:i], p.Hand[i+1:]...)
	return c
}
