package coordinator_test

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"unoserver/internal/archive"
	"unoserver/internal/coordinator"
	"unoserver/internal/engine"
	"unoserver/internal/lobby"
)

type recorder struct {
	mu  sync.Mutex
	got []coordinator.Notification
}

func (r *recorder) Notify(n coordinator.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) all() []coordinator.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]coordinator.Notification(nil), r.got...)
}

func (r *recorder) ofKind(k coordinator.Kind) []coordinator.Notification {
	var out []coordinator.Notification
	for _, n := range r.all() {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// instant fires every bot delay immediately.
func instant(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

type fixture struct {
	c     *coordinator.Coordinator
	rooms *lobby.Manager
	rec   *recorder
	store *archive.MemoryStore
}

func newFixture(t *testing.T, after func(time.Duration) <-chan time.Time) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	f := &fixture{
		rooms: lobby.NewManager(log, lobby.Expiry{}),
		rec:   &recorder{},
		store: archive.NewMemoryStore(),
	}
	f.c = coordinator.New(t.Context(), f.rooms, f.rec, f.store, log, coordinator.Options{Seed: 7, After: after})
	t.Cleanup(f.c.Wait)
	return f
}

func (f *fixture) state(t *testing.T, code string, fn func(s *lobby.State)) {
	t.Helper()
	r, err := f.rooms.Get(code)
	if err != nil {
		t.Fatalf("Get(%s): %v", code, err)
	}
	_ = r.Do(func(s *lobby.State) error {
		fn(s)
		return nil
	})
}

var errKeepClock = errors.New("leave LastActive alone")

// peek is state without refreshing the room's idle clock.
func (f *fixture) peek(t *testing.T, code string, fn func(s *lobby.State)) {
	t.Helper()
	r, err := f.rooms.Get(code)
	if err != nil {
		t.Fatalf("Get(%s): %v", code, err)
	}
	_ = r.Do(func(s *lobby.State) error {
		fn(s)
		return errKeepClock
	})
}

// rigged deals hands in seat order, then opening, then filler.
func rigged(opening engine.Card, hands ...[]engine.Card) engine.GameConfig {
	var cards []engine.Card
	for _, h := range hands {
		cards = append(cards, h...)
	}
	cards = append(cards, opening)
	for i := 0; i < 30; i++ {
		cards = append(cards, engine.Card{Color: engine.ColorGreen, Value: engine.Value1})
	}
	return engine.GameConfig{
		Cards:     cards,
		HandSize:  len(hands[0]),
		Rand:      engine.NewRand(3),
		NoShuffle: true,
	}
}

// twoHumans seats Ann and Bob and starts their game with cfg, bypassing
// the coordinator's own shuffle.
func (f *fixture) twoHumans(t *testing.T, cfg engine.GameConfig) string {
	t.Helper()
	info, err := f.c.CreateRoom("ann", "Ann")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.JoinRoom(info.Code, "bob", "Bob"); err != nil {
		t.Fatal(err)
	}
	if err := f.rooms.Start(info.Code, cfg, nil); err != nil {
		t.Fatal(err)
	}
	return info.Code
}

func card(c engine.Color, v engine.Value) engine.Card {
	return engine.Card{Color: c, Value: v}
}

func TestCreateAndJoinNotify(t *testing.T) {
	f := newFixture(t, instant)

	info, err := f.c.CreateRoom("ann", "Ann")
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Code) != 6 || len(info.Players) != 1 {
		t.Fatalf("CreateRoom = %+v", info)
	}
	created := f.rec.ofKind(coordinator.KindRoomCreated)
	if len(created) != 1 || created[0].To[0] != "ann" {
		t.Fatalf("room_created = %+v", created)
	}

	joined, err := f.c.JoinRoom(info.Code, "bob", "Bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(joined.Players) != 2 || joined.Players[1].Name != "Bob" {
		t.Errorf("JoinRoom players = %+v", joined.Players)
	}
	pj := f.rec.ofKind(coordinator.KindPlayerJoined)
	if len(pj) != 1 || len(pj[0].To) != 2 {
		t.Fatalf("player_joined = %+v", pj)
	}

	if _, err := f.c.JoinRoom("NOPE00", "carl", "Carl"); !errors.Is(err, lobby.ErrRoomNotFound) {
		t.Errorf("JoinRoom unknown = %v", err)
	}
}

func TestJoinSameRoomTwice(t *testing.T) {
	f := newFixture(t, instant)
	info, _ := f.c.CreateRoom("ann", "Ann")

	_, err := f.c.JoinRoom(info.Code, "ann", "Ann")
	if !errors.Is(err, lobby.ErrAlreadySeated) || !coordinator.IsRejection(err) {
		t.Fatalf("second seat = %v, want a rejection", err)
	}
	if n := len(f.rec.ofKind(coordinator.KindPlayerJoined)); n != 0 {
		t.Errorf("player_joined sent %d times for a rejected join", n)
	}

	// Solo start still injects the bot, so ann plays one seat.
	u, err := f.c.StartGame(info.Code)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Players) != 2 || u.Players[0].ID != "ann" || !u.Players[1].IsBot {
		t.Errorf("players = %+v", u.Players)
	}
}

func TestStartGameSendsPrivateHands(t *testing.T) {
	f := newFixture(t, instant)
	info, _ := f.c.CreateRoom("ann", "Ann")
	f.c.JoinRoom(info.Code, "bob", "Bob")

	u, err := f.c.StartGame(info.Code)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.StartGame(info.Code); !errors.Is(err, lobby.ErrGameAlreadyStarted) {
		t.Errorf("second StartGame = %v", err)
	}

	started := f.rec.ofKind(coordinator.KindGameStarted)
	if len(started) != 1 || len(started[0].To) != 2 {
		t.Fatalf("game_started = %+v", started)
	}

	var annHand, bobHand []engine.Card
	f.state(t, info.Code, func(s *lobby.State) {
		annHand, _ = s.Game.Hand("ann")
		bobHand, _ = s.Game.Hand("bob")
	})

	view := u.ViewFor("ann")
	if len(view.Hand) != engine.HandSize {
		t.Fatalf("hand size = %d", len(view.Hand))
	}
	if view.RoomID != info.Code {
		t.Errorf("view roomId = %q, want %q", view.RoomID, info.Code)
	}
	for i := range annHand {
		if view.Hand[i] != annHand[i] {
			t.Fatalf("ViewFor(ann) hand = %v, want %v", view.Hand, annHand)
		}
	}
	if got := u.ViewFor("bob").Hand; len(got) != len(bobHand) || got[0] != bobHand[0] {
		t.Errorf("ViewFor(bob) hand = %v, want %v", got, bobHand)
	}
	if got := u.ViewFor("stranger").Hand; len(got) != 0 {
		t.Errorf("ViewFor(stranger) hand = %v", got)
	}

	// The serialized view carries one hand and only counts for others.
	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Players []map[string]any `json:"players"`
		Hand    []engine.Card    `json:"hand"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, p := range decoded.Players {
		if _, ok := p["hand"]; ok {
			t.Errorf("player entry leaks a hand: %v", p)
		}
		if p["cardCount"] != float64(engine.HandSize) {
			t.Errorf("cardCount = %v", p["cardCount"])
		}
	}
}

func TestActionsBeforeStart(t *testing.T) {
	f := newFixture(t, instant)
	info, _ := f.c.CreateRoom("ann", "Ann")

	if _, err := f.c.DrawCard(info.Code, "ann"); !errors.Is(err, lobby.ErrGameNotStarted) {
		t.Errorf("DrawCard in waiting room = %v", err)
	}
	if _, err := f.c.PlayCard("ZZZZZZ", "ann", 0, ""); !errors.Is(err, lobby.ErrRoomNotFound) {
		t.Errorf("PlayCard unknown room = %v", err)
	}
}

func TestNotYourTurnLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, instant)
	code := f.twoHumans(t, rigged(card(engine.ColorRed, engine.Value9),
		[]engine.Card{card(engine.ColorRed, engine.Value1), card(engine.ColorRed, engine.Value2)},
		[]engine.Card{card(engine.ColorBlue, engine.Value1), card(engine.ColorBlue, engine.Value2)},
	))
	before := len(f.rec.all())

	if _, err := f.c.PlayCard(code, "bob", 0, ""); !errors.Is(err, engine.ErrNotYourTurn) {
		t.Fatalf("PlayCard(bob) = %v", err)
	}
	if _, err := f.c.PlayCard(code, "ann", 5, ""); !errors.Is(err, engine.ErrInvalidMove) {
		t.Fatalf("PlayCard(out of range) = %v", err)
	}
	if len(f.rec.all()) != before {
		t.Error("rejected actions produced notifications")
	}
	f.state(t, code, func(s *lobby.State) {
		if s.Game.Moves() != 0 || s.Game.CurrentIndex() != 0 {
			t.Errorf("moves=%d current=%d", s.Game.Moves(), s.Game.CurrentIndex())
		}
	})
}

func TestWildNeedsBaseColor(t *testing.T) {
	f := newFixture(t, instant)
	code := f.twoHumans(t, rigged(card(engine.ColorRed, engine.Value9),
		[]engine.Card{card(engine.ColorWild, engine.ValueWild), card(engine.ColorRed, engine.Value1)},
		[]engine.Card{card(engine.ColorBlue, engine.Value1), card(engine.ColorBlue, engine.Value2)},
	))

	for _, bad := range []engine.Color{"", engine.ColorWild, "purple"} {
		_, err := f.c.PlayCard(code, "ann", 0, bad)
		if !errors.Is(err, coordinator.ErrInvalidColor) || !errors.Is(err, engine.ErrInvalidMove) {
			t.Errorf("PlayCard(wild, %q) = %v", bad, err)
		}
	}

	u, err := f.c.PlayCard(code, "ann", 0, engine.ColorBlue)
	if err != nil {
		t.Fatal(err)
	}
	if u.State.CurrentColor != engine.ColorBlue || u.State.CurrentPlayerIndex != 1 {
		t.Errorf("after wild: color=%s current=%d", u.State.CurrentColor, u.State.CurrentPlayerIndex)
	}
	if u.LastAction == nil || u.LastAction.Type != engine.ActionPlay || u.LastAction.Card.Value != engine.ValueWild {
		t.Errorf("LastAction = %+v", u.LastAction)
	}
	if got := len(u.ViewFor("ann").Hand); got != 1 {
		t.Errorf("ann hand = %d", got)
	}
}

func TestWinClosesAndArchivesRoom(t *testing.T) {
	f := newFixture(t, instant)
	code := f.twoHumans(t, rigged(card(engine.ColorBlue, engine.Value5),
		[]engine.Card{card(engine.ColorRed, engine.Value5)},
		[]engine.Card{card(engine.ColorBlue, engine.Value3)},
	))

	u, err := f.c.PlayCard(code, "ann", 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if u.Winner != "Ann" || u.State.Winner != "Ann" {
		t.Errorf("winner = %q / %q", u.Winner, u.State.Winner)
	}

	all := f.rec.all()
	last := all[len(all)-1]
	if last.Kind != coordinator.KindGameOver || last.Winner != "Ann" || len(last.To) != 2 {
		t.Errorf("last notification = %+v", last)
	}
	if all[len(all)-2].Kind != coordinator.KindGameUpdate {
		t.Errorf("game_over not preceded by game_update: %+v", all[len(all)-2])
	}

	if _, err := f.rooms.Get(code); !errors.Is(err, lobby.ErrRoomNotFound) {
		t.Errorf("room still registered: %v", err)
	}
	if _, err := f.c.DrawCard(code, "bob"); !errors.Is(err, lobby.ErrRoomNotFound) {
		t.Errorf("DrawCard after win = %v", err)
	}

	f.c.Wait()
	recs, err := f.store.Recent(t.Context(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("archived %d records", len(recs))
	}
	rec := recs[0]
	if rec.RoomCode != code || rec.Winner != "Ann" || rec.Moves != 1 || len(rec.Players) != 2 {
		t.Errorf("record = %+v", rec)
	}
}

func TestSoloGameBotReplies(t *testing.T) {
	f := newFixture(t, instant)
	info, _ := f.c.CreateRoom("ann", "Ann")
	u, err := f.c.StartGame(info.Code)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Players) != 2 || !u.Players[1].IsBot || u.Players[1].Name != lobby.BotName {
		t.Fatalf("players = %+v", u.Players)
	}
	botID := u.Players[1].ID
	if got := u.ViewFor(botID).Hand; len(got) != 0 {
		t.Errorf("bot hand exposed: %v", got)
	}

	if _, err := f.c.DrawCard(info.Code, "ann"); err != nil {
		t.Fatal(err)
	}
	f.c.Wait()

	botMoves := 0
	for _, n := range f.rec.ofKind(coordinator.KindGameUpdate) {
		if n.Update.LastAction.Player == botID {
			botMoves++
		}
		if len(n.To) != 1 || n.To[0] != "ann" {
			t.Errorf("update addressed to %v", n.To)
		}
	}
	if botMoves == 0 {
		t.Fatal("bot never moved")
	}
	if len(f.rec.ofKind(coordinator.KindGameOver)) > 0 {
		return
	}
	f.state(t, info.Code, func(s *lobby.State) {
		if s.Game.CurrentIndex() != 0 {
			t.Errorf("bot chain stopped on seat %d", s.Game.CurrentIndex())
		}
		if s.BotTurns {
			t.Error("BotTurns still set after the chain returned")
		}
	})
}

func TestBotChainStopsWhenRoomEnds(t *testing.T) {
	ticks := make(chan time.Time)
	f := newFixture(t, func(time.Duration) <-chan time.Time { return ticks })
	info, _ := f.c.CreateRoom("ann", "Ann")
	if _, err := f.c.StartGame(info.Code); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.DrawCard(info.Code, "ann"); err != nil {
		t.Fatal(err)
	}

	var moves int
	mark := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.peek(t, info.Code, func(s *lobby.State) {
		moves = s.Game.Moves()
		s.SetStatus(lobby.StatusEnded)
		s.LastActive = mark
	})
	ticks <- time.Time{}
	f.c.Wait()

	f.peek(t, info.Code, func(s *lobby.State) {
		if s.Game.Moves() != moves {
			t.Errorf("bot moved in an ended room: %d -> %d", moves, s.Game.Moves())
		}
		if !s.LastActive.Equal(mark) {
			t.Errorf("idle bot tick touched LastActive: %v", s.LastActive)
		}
		if s.BotTurns {
			t.Error("bot chain still flagged after stopping")
		}
	})
	if n := len(f.rec.ofKind(coordinator.KindGameUpdate)); n != 1 {
		t.Errorf("game updates = %d, want 1", n)
	}
}

func TestConcurrentActionsSerialize(t *testing.T) {
	f := newFixture(t, instant)
	info, _ := f.c.CreateRoom("ann", "Ann")
	f.c.JoinRoom(info.Code, "bob", "Bob")
	if _, err := f.c.StartGame(info.Code); err != nil {
		t.Fatal(err)
	}

	var ok atomic.Int64
	var wg sync.WaitGroup
	for _, id := range []string{"ann", "bob", "ann", "bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				if _, err := f.c.DrawCard(info.Code, id); err == nil {
					ok.Add(1)
				} else if !errors.Is(err, engine.ErrNotYourTurn) {
					t.Errorf("DrawCard(%s) = %v", id, err)
				}
			}
		}()
	}
	wg.Wait()

	if n := len(f.rec.ofKind(coordinator.KindGameUpdate)); int64(n) != ok.Load() {
		t.Errorf("updates = %d, accepted draws = %d", n, ok.Load())
	}
	f.state(t, info.Code, func(s *lobby.State) {
		if int64(s.Game.Moves()) != ok.Load() {
			t.Errorf("moves = %d, accepted = %d", s.Game.Moves(), ok.Load())
		}
		total := s.Game.DeckCount() + s.Game.DiscardCount()
		for _, p := range s.Players {
			total += len(p.Hand)
		}
		if total != engine.DeckSize {
			t.Errorf("cards in play = %d, want %d", total, engine.DeckSize)
		}
	})
}

func TestPanicClosesOnlyThatRoom(t *testing.T) {
	log := zaptest.NewLogger(t)
	rooms := lobby.NewManager(log, lobby.Expiry{})
	var poisoned atomic.Value
	poisoned.Store("")
	notifier := coordinator.NotifierFunc(func(n coordinator.Notification) {
		if n.Kind == coordinator.KindGameUpdate && n.Room == poisoned.Load().(string) {
			panic("notifier exploded")
		}
	})
	c := coordinator.New(t.Context(), rooms, notifier, nil, log, coordinator.Options{After: instant})
	t.Cleanup(c.Wait)

	start := func(first, second string) string {
		info, err := c.CreateRoom(first, first)
		if err != nil {
			t.Fatal(err)
		}
		c.JoinRoom(info.Code, second, second)
		if _, err := c.StartGame(info.Code); err != nil {
			t.Fatal(err)
		}
		return info.Code
	}
	bad := start("ann", "bob")
	good := start("carl", "dora")
	poisoned.Store(bad)

	if _, err := c.DrawCard(bad, "ann"); !errors.Is(err, coordinator.ErrInternal) {
		t.Fatalf("DrawCard in poisoned room = %v", err)
	}
	if _, err := rooms.Get(bad); !errors.Is(err, lobby.ErrRoomNotFound) {
		t.Errorf("faulted room still registered: %v", err)
	}
	if _, err := c.DrawCard(good, "carl"); err != nil {
		t.Errorf("DrawCard in healthy room = %v", err)
	}
}

func TestIsRejection(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{lobby.ErrRoomNotFound, true},
		{lobby.ErrRoomFull, true},
		{lobby.ErrAlreadySeated, true},
		{engine.ErrNotYourTurn, true},
		{coordinator.ErrInvalidColor, true},
		{engine.ErrGameOver, true},
		{coordinator.ErrInternal, false},
		{errors.New("disk on fire"), false},
	}
	for _, tc := range cases {
		if got := coordinator.IsRejection(tc.err); got != tc.want {
			t.Errorf("IsRejection(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
