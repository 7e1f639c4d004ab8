package lobby

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"unoserver/internal/engine"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrRoomFull           = errors.New("room is full")
	ErrGameNotStarted     = errors.New("game not started")
	ErrAlreadySeated      = errors.New("player already seated in this room")
)

// Status is a room's lifecycle stage. It only moves forward.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

var statusOrder = map[Status]int{StatusWaiting: 0, StatusPlaying: 1, StatusEnded: 2}

// BotName is the display name given to the bot added for solo play.
const BotName = "CPU (Bot)"

// State is a room's mutable data. It is only reachable inside Room.Do.
type State struct {
	Code      string
	Players   []*engine.Player
	Status    Status
	Game      *engine.Game
	CreatedAt time.Time
	StartedAt time.Time
	// LastActive is refreshed after every successful Do.
	LastActive time.Time
	// BotTurns is set while a bot-turn chain is scheduled for this room.
	BotTurns bool
}

// Room is one game session. All access is serialized through Do.
type Room struct {
	mu    sync.Mutex
	code  string
	now   func() time.Time
	state State
}

func newRoom(code string, first *engine.Player, now func() time.Time) *Room {
	t := now()
	return &Room{
		code: code,
		now:  now,
		state: State{
			Code:       code,
			Players:    []*engine.Player{first},
			Status:     StatusWaiting,
			CreatedAt:  t,
			LastActive: t,
		},
	}
}

func (r *Room) Code() string {
	return r.code
}

// Do runs fn with exclusive access to the room state. Actions for one room
// therefore apply one at a time, in the order they acquire the room.
func (r *Room) Do(fn func(s *State) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := fn(&r.state); err != nil {
		return err
	}
	r.state.LastActive = r.now()
	return nil
}

// Status returns the room's current status.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Status
}

// SetStatus moves the room forward; moving backwards is ignored.
func (s *State) SetStatus(next Status) {
	if statusOrder[next] > statusOrder[s.Status] {
		s.Status = next
	}
}

// Join appends a player to a waiting room. A player holds at most one seat.
func (s *State) Join(p *engine.Player) error {
	if s.Status != StatusWaiting {
		return ErrGameAlreadyStarted
	}
	for _, seated := range s.Players {
		if seated.ID == p.ID {
			return ErrAlreadySeated
		}
	}
	if len(s.Players) >= engine.MaxPlayers {
		return ErrRoomFull
	}
	s.Players = append(s.Players, p)
	return nil
}

// Start adds a bot when only one human is seated, then deals a fresh game.
// The roster is left untouched if the deal fails.
func (s *State) Start(cfg engine.GameConfig, now time.Time) error {
	if s.Status != StatusWaiting {
		return ErrGameAlreadyStarted
	}
	players := s.Players
	if s.humans() == 1 && len(s.Players) == 1 {
		players = []*engine.Player{s.Players[0], engine.NewBot(newBotID(), s.botName())}
	}
	g := engine.NewGame(cfg)
	if err := g.InitGame(players); err != nil {
		return fmt.Errorf("start room %s: %w", s.Code, err)
	}
	s.Players = players
	s.Game = g
	s.StartedAt = now
	s.SetStatus(StatusPlaying)
	return nil
}

// Roster returns the public summary of every seated player.
func (s *State) Roster() []engine.Summary {
	out := make([]engine.Summary, len(s.Players))
	for i, p := range s.Players {
		out[i] = p.Summary()
	}
	return out
}

// Humans returns the ids of non-bot players in seat order.
func (s *State) Humans() []string {
	var ids []string
	for _, p := range s.Players {
		if !p.IsBot {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// CurrentIsBot reports whether a running game waits on a bot.
func (s *State) CurrentIsBot() bool {
	if s.Status != StatusPlaying || s.Game == nil {
		return false
	}
	cur, ok := s.Game.CurrentPlayer()
	return ok && cur.IsBot
}

func (s *State) humans() int {
	return len(s.Humans())
}

func (s *State) botName() string {
	taken := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		taken[p.Name] = true
	}
	name := BotName
	for i := 2; taken[name]; i++ {
		name = fmt.Sprintf("%s %d", BotName, i)
	}
	return name
}

func newBotID() string {
	return "bot_" + uuid.NewString()[:8]
}
