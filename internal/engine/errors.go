package engine

import "errors"

var (
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidMove        = errors.New("invalid move")
	ErrInsufficientCards  = errors.New("insufficient cards")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrGameOver           = errors.New("game is over")
	ErrNotInitialized     = errors.New("game not initialized")
	ErrAlreadyInitialized = errors.New("game already initialized")
	ErrRosterSize         = errors.New("roster must have 2 to 4 players")
)
