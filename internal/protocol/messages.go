package protocol

import "unoserver/internal/engine"

// Message types: Server → Client
const (
	MsgConnected    = "connected"
	MsgRoomCreated  = "room_created"
	MsgPlayerJoined = "player_joined"
	MsgGameStarted  = "game_started"
	MsgGameUpdate   = "game_update"
	MsgGameOver     = "game_over"
	MsgError        = "error"
)

// Message types: Client → Server
const (
	MsgCreateRoom = "create_room"
	MsgJoinRoom   = "join_room"
	MsgStartGame  = "start_game"
	MsgPlayCard   = "play_card"
	MsgDrawCard   = "draw_card"
)

type CreateRoomMsg struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomMsg struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// RoomMsg addresses an action at an existing room (start_game, draw_card).
type RoomMsg struct {
	RoomID string `json:"roomId"`
}

type PlayCardMsg struct {
	RoomID    string       `json:"roomId"`
	CardIndex int          `json:"cardIndex"`
	Color     engine.Color `json:"color,omitempty"`
}

// ConnectedMsg tells a new connection which player id it was given.
type ConnectedMsg struct {
	PlayerID string `json:"playerId"`
}

// RoomState answers room_created and player_joined.
type RoomState struct {
	RoomID  string           `json:"roomId"`
	Players []engine.Summary `json:"players"`
}

type GameOverMsg struct {
	RoomID string `json:"roomId"`
	Winner string `json:"winner"`
}

// ErrorMsg is sent to a client on error.
type ErrorMsg struct {
	Message string `json:"message"`
}
