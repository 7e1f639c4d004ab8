// Package coordinator applies player actions to rooms, publishes the
// resulting state and drives bot turns.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"unoserver/internal/archive"
	"unoserver/internal/bot"
	"unoserver/internal/engine"
	"unoserver/internal/lobby"
)

// DefaultBotDelay is the pause before each bot move.
const DefaultBotDelay = 800 * time.Millisecond

const archiveTimeout = 5 * time.Second

var (
	// ErrInvalidColor rejects a wild card played without a base color.
	ErrInvalidColor = fmt.Errorf("%w: wild card needs red, blue, green or yellow", engine.ErrInvalidMove)
	// ErrInternal is reported when an action faulted; the room is closed.
	ErrInternal = errors.New("internal error")

	// errNoBotTurn leaves the room untouched, so its idle clock keeps running.
	errNoBotTurn = errors.New("no bot to move")
)

// Options tunes a Coordinator.
type Options struct {
	BotDelay time.Duration
	// Seed feeds every game's shuffle and the bot color picks; 0 means
	// time-based.
	Seed uint64
	// After replaces time.After, mainly for tests.
	After func(time.Duration) <-chan time.Time
}

// Coordinator is the action surface used by the gateway.
type Coordinator struct {
	ctx      context.Context
	rooms    *lobby.Manager
	notifier Notifier
	archive  archive.Store
	bots     *bot.Strategist
	log      *zap.Logger

	botDelay time.Duration
	after    func(time.Duration) <-chan time.Time

	seedMu sync.Mutex
	seeds  *rand.Rand

	wg sync.WaitGroup
}

// New creates a coordinator. Bot chains stop when ctx is done.
func New(ctx context.Context, rooms *lobby.Manager, notifier Notifier, store archive.Store, log *zap.Logger, opts Options) *Coordinator {
	if opts.After == nil {
		opts.After = time.After
	}
	if store == nil {
		store = archive.NewMemoryStore()
	}
	seeds := engine.NewRand(opts.Seed)
	return &Coordinator{
		ctx:      ctx,
		rooms:    rooms,
		notifier: notifier,
		archive:  store,
		bots:     bot.NewStrategist(engine.NewRand(seeds.Uint64())),
		log:      log,
		botDelay: opts.BotDelay,
		after:    opts.After,
		seeds:    seeds,
	}
}

// CreateRoom opens a room with the requesting player as its only member.
func (c *Coordinator) CreateRoom(playerID, name string) (RoomInfo, error) {
	room, err := c.rooms.Create(engine.NewPlayer(playerID, name))
	if err != nil {
		return RoomInfo{}, err
	}
	var info RoomInfo
	err = room.Do(func(s *lobby.State) error {
		info = RoomInfo{Code: s.Code, Players: s.Roster()}
		c.notifier.Notify(Notification{
			Kind:   KindRoomCreated,
			Room:   s.Code,
			To:     []string{playerID},
			Roster: info.Players,
		})
		return nil
	})
	return info, err
}

// JoinRoom seats a player in a waiting room and tells everyone in it.
func (c *Coordinator) JoinRoom(code, playerID, name string) (RoomInfo, error) {
	info := RoomInfo{Code: code}
	roster, err := c.rooms.Join(code, engine.NewPlayer(playerID, name), func(s *lobby.State) {
		c.notifier.Notify(Notification{
			Kind:   KindPlayerJoined,
			Room:   code,
			To:     s.Humans(),
			Roster: s.Roster(),
		})
	})
	if err != nil {
		return RoomInfo{}, err
	}
	info.Players = roster
	c.log.Info("player joined", zap.String("room", code), zap.String("player", playerID))
	return info, nil
}

// StartGame deals the room's game and sends each human their hand.
func (c *Coordinator) StartGame(code string) (Update, error) {
	room, err := c.rooms.Get(code)
	if err != nil {
		return Update{}, err
	}
	var u Update
	err = c.rooms.Start(code, c.gameConfig(), func(s *lobby.State) {
		u = snapshot(s, nil)
		c.notifier.Notify(Notification{Kind: KindGameStarted, Room: code, To: s.Humans(), Update: &u})
		c.scheduleBots(room, s)
	})
	return u, err
}

// PlayCard plays a card for playerID. color is required for wild cards.
func (c *Coordinator) PlayCard(code, playerID string, cardIndex int, color engine.Color) (Update, error) {
	return c.act(code, func(s *lobby.State) (engine.Result, error) {
		if err := checkWildColor(s.Game, playerID, cardIndex, color); err != nil {
			return engine.Result{}, err
		}
		return s.Game.PlayCard(playerID, cardIndex, color)
	})
}

// DrawCard draws one card for playerID and passes the turn.
func (c *Coordinator) DrawCard(code, playerID string) (Update, error) {
	return c.act(code, func(s *lobby.State) (engine.Result, error) {
		return s.Game.DrawCard(playerID)
	})
}

// Wait blocks until every bot chain and archive write has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// act runs one human action inside the room's critical section, publishes
// the result and hands control to the bots if it is their turn.
func (c *Coordinator) act(code string, apply func(s *lobby.State) (engine.Result, error)) (u Update, err error) {
	room, err := c.rooms.Get(code)
	if err != nil {
		return Update{}, err
	}
	defer c.recoverRoom(room, &err)
	err = room.Do(func(s *lobby.State) error {
		switch s.Status {
		case lobby.StatusWaiting:
			return lobby.ErrGameNotStarted
		case lobby.StatusEnded:
			return engine.ErrGameOver
		}
		res, err := apply(s)
		if err != nil {
			return err
		}
		u = c.publish(room, s, res)
		c.scheduleBots(room, s)
		return nil
	})
	if err != nil {
		c.log.Debug("action rejected", zap.String("room", code), zap.Error(err))
	}
	return u, err
}

// publish broadcasts the state after res and closes the room on a win.
// The caller holds the room.
func (c *Coordinator) publish(room *lobby.Room, s *lobby.State, res engine.Result) Update {
	u := snapshot(s, &LastAction{Type: res.Type, Player: res.PlayerID, Card: res.Card})
	humans := s.Humans()
	c.notifier.Notify(Notification{Kind: KindGameUpdate, Room: s.Code, To: humans, Update: &u})

	if res.Winner == "" {
		return u
	}
	s.SetStatus(lobby.StatusEnded)
	c.notifier.Notify(Notification{Kind: KindGameOver, Room: s.Code, To: humans, Winner: res.Winner})
	c.log.Info("game over", zap.String("room", s.Code), zap.String("winner", res.Winner), zap.Int("moves", s.Game.Moves()))
	c.store(recordOf(s, res.Winner))
	c.rooms.Remove(room)
	return u
}

// scheduleBots starts a bot chain if a bot holds the turn and none is
// running yet. The caller holds the room.
func (c *Coordinator) scheduleBots(room *lobby.Room, s *lobby.State) {
	if s.BotTurns || !s.CurrentIsBot() {
		return
	}
	s.BotTurns = true
	c.wg.Add(1)
	go c.runBots(room)
}

// runBots waits the pacing delay, applies one bot move and repeats while
// the game is running and a bot holds the turn.
func (c *Coordinator) runBots(room *lobby.Room) {
	defer c.wg.Done()
	defer c.recoverRoom(room, nil)
	for {
		select {
		case <-c.after(c.botDelay):
		case <-c.ctx.Done():
			return
		}
		more := false
		_ = room.Do(func(s *lobby.State) error {
			if !s.CurrentIsBot() {
				s.BotTurns = false
				return errNoBotTurn
			}
			more = c.botTurn(room, s)
			if !more {
				s.BotTurns = false
			}
			return nil
		})
		if !more {
			return
		}
	}
}

// botTurn applies a single bot move and reports whether another bot is up.
func (c *Coordinator) botTurn(room *lobby.Room, s *lobby.State) bool {
	if !s.CurrentIsBot() {
		return false
	}
	cur, _ := s.Game.CurrentPlayer()
	move, err := c.bots.Move(s.Game, cur.ID)
	if err != nil {
		c.log.Error("bot move", zap.String("room", s.Code), zap.String("player", cur.ID), zap.Error(err))
		return false
	}

	var res engine.Result
	switch move.Type {
	case engine.ActionPlay:
		res, err = s.Game.PlayCard(cur.ID, move.CardIndex, move.Color)
	default:
		res, err = s.Game.DrawCard(cur.ID)
	}
	if err != nil {
		c.log.Error("bot move rejected", zap.String("room", s.Code), zap.String("player", cur.ID), zap.Error(err))
		return false
	}
	c.publish(room, s, res)
	return s.CurrentIsBot()
}

// recoverRoom turns a panic during an action into ErrInternal and ends the
// room, whose state can no longer be trusted. Other rooms are unaffected.
func (c *Coordinator) recoverRoom(room *lobby.Room, err *error) {
	r := recover()
	if r == nil {
		return
	}
	c.log.Error("room action panicked", zap.String("room", room.Code()), zap.Any("panic", r), zap.Stack("stack"))
	_ = room.Do(func(s *lobby.State) error {
		s.SetStatus(lobby.StatusEnded)
		s.BotTurns = false
		return nil
	})
	c.rooms.Remove(room)
	if err != nil {
		*err = ErrInternal
	}
}

func (c *Coordinator) store(rec archive.Record) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), archiveTimeout)
		defer cancel()
		if err := c.archive.Save(ctx, rec); err != nil {
			c.log.Error("archive game", zap.String("room", rec.RoomCode), zap.Error(err))
		}
	}()
}

func (c *Coordinator) gameConfig() engine.GameConfig {
	c.seedMu.Lock()
	defer c.seedMu.Unlock()
	cfg := engine.DefaultConfig()
	cfg.Rand = engine.NewRand(c.seeds.Uint64() | 1)
	return cfg
}

// checkWildColor rejects a wild play without a base color before the engine
// sees it. Other problems are left for the engine to report.
func checkWildColor(g *engine.Game, playerID string, cardIndex int, color engine.Color) error {
	cur, ok := g.CurrentPlayer()
	if !ok || cur.ID != playerID {
		return nil
	}
	hand, err := g.Hand(playerID)
	if err != nil || cardIndex < 0 || cardIndex >= len(hand) {
		return nil
	}
	if hand[cardIndex].IsWild() && !color.IsBase() {
		return ErrInvalidColor
	}
	return nil
}

func snapshot(s *lobby.State, last *LastAction) Update {
	u := Update{
		Room:       s.Code,
		State:      s.Game.StateProjection(),
		Players:    s.Roster(),
		LastAction: last,
		hands:      make(map[string][]engine.Card, len(s.Players)),
	}
	if name, ok := s.Game.Winner(); ok {
		u.Winner = name
	}
	for _, p := range s.Players {
		if p.IsBot {
			continue
		}
		hand, _ := s.Game.Hand(p.ID)
		u.hands[p.ID] = hand
	}
	return u
}

func recordOf(s *lobby.State, winner string) archive.Record {
	names := make([]string, len(s.Players))
	for i, p := range s.Players {
		names[i] = p.Name
	}
	return archive.Record{
		RoomCode:  s.Code,
		Winner:    winner,
		Players:   names,
		Moves:     s.Game.Moves(),
		StartedAt: s.StartedAt,
		EndedAt:   time.Now(),
	}
}

// IsRejection reports whether err is an expected refusal of a player's
// request rather than a fault.
func IsRejection(err error) bool {
	for _, target := range []error{
		lobby.ErrRoomNotFound,
		lobby.ErrGameAlreadyStarted,
		lobby.ErrRoomFull,
		lobby.ErrGameNotStarted,
		lobby.ErrAlreadySeated,
		engine.ErrNotYourTurn,
		engine.ErrInvalidMove,
		engine.ErrGameOver,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
