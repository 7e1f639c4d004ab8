package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"unoserver/internal/archive"
	"unoserver/internal/lobby"
	"unoserver/internal/qrcode"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	hub      *Hub
	rooms    *lobby.Manager
	archive  archive.Store
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandlers(hub *Hub, rooms *lobby.Manager, store archive.Store, allowedOrigins []string, log *zap.Logger) *Handlers {
	return &Handlers{
		hub:     hub,
		rooms:   rooms,
		archive: store,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		log: log,
	}
}

// HandleWS upgrades the request and attaches the connection to the hub
// under a fresh player id.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade error", zap.String("origin", r.Header.Get("Origin")), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, NewPlayerID())
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// HandleHealth reports liveness, live rooms and open connections.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"rooms":       h.rooms.Len(),
		"connections": h.hub.Connected(),
	})
}

// HandleQR generates a QR code PNG for joining a room.
func (h *Handlers) HandleQR(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(r.URL.Query().Get("room"))
	if code == "" {
		http.Error(w, "missing room parameter", http.StatusBadRequest)
		return
	}
	if _, err := h.rooms.Get(code); errors.Is(err, lobby.ErrRoomNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	png, err := qrcode.GenerateJoin(r.Host, code)
	if err != nil {
		h.log.Error("qr generation", zap.String("room", code), zap.Error(err))
		http.Error(w, "QR generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// HandleHistory lists the most recently finished games.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := archive.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = archive.ClampLimit(n)
	}
	recs, err := h.archive.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("list history", zap.Error(err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []archive.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// staticHandler serves the built web client from dir. Paths that are not
// files fall back to index.html so client-side routes resolve.
func staticHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	})
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = true
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.ToLower(origin)]
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
