package coordinator

import "unoserver/internal/engine"

// Kind tags a Notification.
type Kind string

const (
	KindRoomCreated  Kind = "room_created"
	KindPlayerJoined Kind = "player_joined"
	KindGameStarted  Kind = "game_started"
	KindGameUpdate   Kind = "game_update"
	KindGameOver     Kind = "game_over"
)

// LastAction describes the move that produced an update. Card is set for
// plays only.
type LastAction struct {
	Type   engine.ActionType `json:"type"`
	Player string            `json:"player"`
	Card   *engine.Card      `json:"card,omitempty"`
}

// RoomInfo is the result of creating or joining a room.
type RoomInfo struct {
	Code    string           `json:"roomId"`
	Players []engine.Summary `json:"players"`
}

// Update is the table state after an action. Hands are private: the only
// way to read one is ViewFor, which returns the viewer's own hand.
type Update struct {
	Room       string
	State      engine.StateProjection
	Players    []engine.Summary
	LastAction *LastAction
	Winner     string

	hands map[string][]engine.Card
}

// PlayerView is what one player receives after an action.
type PlayerView struct {
	RoomID     string                 `json:"roomId"`
	GameState  engine.StateProjection `json:"gameState"`
	Players    []engine.Summary       `json:"players"`
	Hand       []engine.Card          `json:"hand"`
	LastAction *LastAction            `json:"lastAction,omitempty"`
}

// ViewFor returns the public state plus playerID's hand only.
func (u Update) ViewFor(playerID string) PlayerView {
	hand := u.hands[playerID]
	if hand == nil {
		hand = []engine.Card{}
	}
	return PlayerView{
		RoomID:     u.Room,
		GameState:  u.State,
		Players:    u.Players,
		Hand:       hand,
		LastAction: u.LastAction,
	}
}

// Notification is pushed to the gateway for delivery. To lists the human
// players that should receive it.
type Notification struct {
	Kind   Kind
	Room   string
	To     []string
	Roster []engine.Summary // room_created, player_joined
	Update *Update          // game_started, game_update
	Winner string           // game_over
}

// Notifier delivers notifications to connected players.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
