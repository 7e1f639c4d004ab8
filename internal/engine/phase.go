package engine

// GamePhase represents the current phase of the engine state machine.
type GamePhase int

const (
	PhaseNew          GamePhase = iota // created, InitGame not called yet
	PhaseAwaitingMove                  // dealt, waiting for the current player
	PhaseResolved                      // a hand was emptied; terminal
)

var phaseNames = map[GamePhase]string{
	PhaseNew:          "New",
	PhaseAwaitingMove: "AwaitingMove",
	PhaseResolved:     "Resolved",
}

func (p GamePhase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "Unknown"
}
