package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"unoserver/internal/coordinator"
	"unoserver/internal/engine"
	"unoserver/internal/protocol"
)

var (
	errBadPayload     = errors.New("invalid message")
	errUnknownMessage = errors.New("unknown message type")
	errEmptyName      = errors.New("player name is required")
)

// Actions is the game surface the hub routes client messages to.
type Actions interface {
	CreateRoom(playerID, name string) (coordinator.RoomInfo, error)
	JoinRoom(code, playerID, name string) (coordinator.RoomInfo, error)
	StartGame(code string) (coordinator.Update, error)
	PlayCard(code, playerID string, cardIndex int, color engine.Color) (coordinator.Update, error)
	DrawCard(code, playerID string) (coordinator.Update, error)
}

// Hub tracks live connections by player id, routes their messages to the
// game and delivers game notifications back to them.
type Hub struct {
	mu         sync.Mutex
	clients    map[string]*Client
	actions    Actions
	log        *zap.Logger
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once
}

func NewHub(actions Actions, log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		actions:    actions,
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.PlayerID] = client
			h.mu.Unlock()
			h.sendTo(client, protocol.MustEnvelope(protocol.MsgConnected, protocol.ConnectedMsg{PlayerID: client.PlayerID}))
			h.log.Debug("client connected", zap.String("player", client.PlayerID))

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.PlayerID]; ok && cur == client {
				delete(h.clients, client.PlayerID)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("client disconnected", zap.String("player", client.PlayerID))

		case <-h.quit:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a connection. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Stop closes every connection and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Connected returns the number of live connections.
func (h *Hub) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify implements coordinator.Notifier. Game states are rendered per
// recipient so each player only ever receives their own hand.
func (h *Hub) Notify(n coordinator.Notification) {
	switch n.Kind {
	case coordinator.KindRoomCreated:
		h.broadcast(n.To, protocol.MustEnvelope(protocol.MsgRoomCreated, protocol.RoomState{RoomID: n.Room, Players: n.Roster}))
	case coordinator.KindPlayerJoined:
		h.broadcast(n.To, protocol.MustEnvelope(protocol.MsgPlayerJoined, protocol.RoomState{RoomID: n.Room, Players: n.Roster}))
	case coordinator.KindGameStarted, coordinator.KindGameUpdate:
		typ := protocol.MsgGameUpdate
		if n.Kind == coordinator.KindGameStarted {
			typ = protocol.MsgGameStarted
		}
		for _, id := range n.To {
			h.sendToID(id, protocol.MustEnvelope(typ, n.Update.ViewFor(id)))
		}
	case coordinator.KindGameOver:
		h.broadcast(n.To, protocol.MustEnvelope(protocol.MsgGameOver, protocol.GameOverMsg{RoomID: n.Room, Winner: n.Winner}))
	default:
		h.log.Warn("unknown notification", zap.String("kind", string(n.Kind)), zap.String("room", n.Room))
	}
}

// handleMessage applies one client message. Failures, including panics, are
// answered with an error envelope to that client only.
func (h *Hub) handleMessage(c *Client, env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("message handler panicked",
				zap.String("player", c.PlayerID),
				zap.String("action", env.Type),
				zap.Any("panic", r),
				zap.Stack("stack"))
			h.sendError(c, coordinator.ErrInternal.Error())
		}
	}()

	if err := h.dispatch(c, env); err != nil {
		h.reject(c, env.Type, err)
	}
}

func (h *Hub) dispatch(c *Client, env protocol.Envelope) error {
	switch env.Type {
	case protocol.MsgCreateRoom:
		var msg protocol.CreateRoomMsg
		if err := decode(env, &msg); err != nil {
			return err
		}
		name, err := playerName(msg.PlayerName)
		if err != nil {
			return err
		}
		_, err = h.actions.CreateRoom(c.PlayerID, name)
		return err

	case protocol.MsgJoinRoom:
		var msg protocol.JoinRoomMsg
		if err := decode(env, &msg); err != nil {
			return err
		}
		name, err := playerName(msg.PlayerName)
		if err != nil {
			return err
		}
		_, err = h.actions.JoinRoom(normalizeCode(msg.RoomID), c.PlayerID, name)
		return err

	case protocol.MsgStartGame:
		var msg protocol.RoomMsg
		if err := decode(env, &msg); err != nil {
			return err
		}
		_, err := h.actions.StartGame(normalizeCode(msg.RoomID))
		return err

	case protocol.MsgPlayCard:
		var msg protocol.PlayCardMsg
		if err := decode(env, &msg); err != nil {
			return err
		}
		_, err := h.actions.PlayCard(normalizeCode(msg.RoomID), c.PlayerID, msg.CardIndex, msg.Color)
		return err

	case protocol.MsgDrawCard:
		var msg protocol.RoomMsg
		if err := decode(env, &msg); err != nil {
			return err
		}
		_, err := h.actions.DrawCard(normalizeCode(msg.RoomID), c.PlayerID)
		return err

	default:
		return fmt.Errorf("%w: %q", errUnknownMessage, env.Type)
	}
}

// reject reports err to the requesting client. Expected refusals go back
// verbatim; anything else is logged and reported as an internal error.
func (h *Hub) reject(c *Client, action string, err error) {
	fields := []zap.Field{zap.String("player", c.PlayerID), zap.String("action", action), zap.Error(err)}
	switch {
	case coordinator.IsRejection(err),
		errors.Is(err, errBadPayload),
		errors.Is(err, errUnknownMessage),
		errors.Is(err, errEmptyName):
		h.log.Debug("request rejected", fields...)
		h.sendError(c, err.Error())
	default:
		h.log.Error("request failed", fields...)
		h.sendError(c, coordinator.ErrInternal.Error())
	}
}

func (h *Hub) sendError(c *Client, message string) {
	h.sendTo(c, protocol.MustEnvelope(protocol.MsgError, protocol.ErrorMsg{Message: message}))
}

// sendTo queues env for c if c is still connected.
func (h *Hub) sendTo(c *Client, env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error("marshal envelope", zap.String("type", env.Type), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.PlayerID]; ok && cur == c {
		c.sendRaw(data)
	}
}

func (h *Hub) sendToID(id string, env protocol.Envelope) {
	h.broadcast([]string{id}, env)
}

// broadcast sends the same message to every listed player that is online.
func (h *Hub) broadcast(ids []string, env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error("broadcast marshal error", zap.String("type", env.Type), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		if client, ok := h.clients[id]; ok {
			client.sendRaw(data)
		}
	}
}

func decode(env protocol.Envelope, v any) error {
	if err := env.Decode(v); err != nil {
		return fmt.Errorf("%w: %s payload", errBadPayload, env.Type)
	}
	return nil
}

func playerName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errEmptyName
	}
	return name, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
