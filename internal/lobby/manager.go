package lobby

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"unoserver/internal/engine"
)

const (
	codeLength   = 6
	maxCodeTries = 64
)

var ErrNoFreeCode = errors.New("could not allocate a room code")

// Expiry controls how long idle rooms are kept.
// Rooms in play are never expired; a player may hold the turn indefinitely.
type Expiry struct {
	Waiting  time.Duration // idle waiting rooms; 0 keeps them forever
	Interval time.Duration // sweep period for Run
}

// Manager owns every live room, keyed by room code.
type Manager struct {
	mu    sync.Mutex
	rooms map[string]*Room

	log     *zap.Logger
	expiry  Expiry
	now     func() time.Time
	newCode func() string
}

func NewManager(log *zap.Logger, expiry Expiry) *Manager {
	return &Manager{
		rooms:   make(map[string]*Room),
		log:     log,
		expiry:  expiry,
		now:     time.Now,
		newCode: generateCode,
	}
}

// Create opens a waiting room for first under a code no live room uses.
func (m *Manager) Create(first *engine.Player) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < maxCodeTries; i++ {
		code := m.newCode()
		if _, taken := m.rooms[code]; taken {
			continue
		}
		r := newRoom(code, first, m.now)
		m.rooms[code] = r
		m.log.Info("room created", zap.String("room", code), zap.String("player", first.ID))
		return r, nil
	}
	return nil, ErrNoFreeCode
}

// Get returns the room with the exact code.
func (m *Manager) Get(code string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Join seats p in a waiting room. after, if not nil, runs inside the room's
// critical section once the join succeeded.
func (m *Manager) Join(code string, p *engine.Player, after func(*State)) ([]engine.Summary, error) {
	r, err := m.Get(code)
	if err != nil {
		return nil, err
	}
	var roster []engine.Summary
	err = r.Do(func(s *State) error {
		if err := s.Join(p); err != nil {
			return err
		}
		roster = s.Roster()
		if after != nil {
			after(s)
		}
		return nil
	})
	return roster, err
}

// Start deals a game in a waiting room, adding a bot for solo play. after,
// if not nil, runs inside the room's critical section.
func (m *Manager) Start(code string, cfg engine.GameConfig, after func(*State)) error {
	r, err := m.Get(code)
	if err != nil {
		return err
	}
	return r.Do(func(s *State) error {
		if err := s.Start(cfg, m.now()); err != nil {
			return err
		}
		m.log.Info("game started", zap.String("room", code), zap.Int("players", len(s.Players)))
		if after != nil {
			after(s)
		}
		return nil
	})
}

// Remove forgets r if it is still the room registered under its code.
func (m *Manager) Remove(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[r.code] == r {
		delete(m.rooms, r.code)
	}
}

// Len returns the number of live rooms.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// Sweep drops ended rooms and waiting rooms idle past their expiry.
func (m *Manager) Sweep(now time.Time) []string {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	var removed []string
	for _, r := range rooms {
		var drop bool
		r.mu.Lock()
		s := &r.state
		idle := now.Sub(s.LastActive)
		switch s.Status {
		case StatusEnded:
			drop = true
		case StatusWaiting:
			drop = m.expiry.Waiting > 0 && idle > m.expiry.Waiting
		}
		r.mu.Unlock()

		if drop {
			m.Remove(r)
			removed = append(removed, r.code)
		}
	}
	if len(removed) > 0 {
		m.log.Info("rooms swept", zap.Strings("rooms", removed))
	}
	return removed
}

// Run sweeps on every expiry interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.expiry.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(m.expiry.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep(m.now())
		case <-ctx.Done():
			return
		}
	}
}

// generateCode returns six uppercase base32 characters (A-Z, 2-7).
func generateCode() string {
	return rand.Text()[:codeLength]
}
