package server

import "github.com/google/uuid"

// NewPlayerID creates the id a connection plays under.
func NewPlayerID() string {
	return uuid.NewString()
}
