package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"unoserver/internal/archive"
	"unoserver/internal/coordinator"
	"unoserver/internal/lobby"
)

// Options configures a Server.
type Options struct {
	Port           int
	StaticDir      string
	AllowedOrigins []string
	Coordinator    coordinator.Options
}

// Server ties together HTTP serving, WebSocket handling and the game.
type Server struct {
	hub      *Hub
	coord    *coordinator.Coordinator
	handlers *Handlers
	http     *http.Server
	log      *zap.Logger
	opts     Options
}

// New wires the hub and coordinator over rooms. Bot turns stop when ctx is
// done.
func New(ctx context.Context, opts Options, rooms *lobby.Manager, store archive.Store, log *zap.Logger) *Server {
	hub := NewHub(nil, log.Named("hub"))
	coord := coordinator.New(ctx, rooms, hub, store, log.Named("coordinator"), opts.Coordinator)
	hub.actions = coord

	s := &Server{
		hub:      hub,
		coord:    coord,
		handlers: NewHandlers(hub, rooms, store, opts.AllowedOrigins, log.Named("http")),
		log:      log,
		opts:     opts,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.opts.StaticDir != "" {
		mux.Handle("/", staticHandler(s.opts.StaticDir))
	}
	mux.HandleFunc("GET /health", s.handlers.HandleHealth)
	mux.HandleFunc("GET /api/qr", s.handlers.HandleQR)
	mux.HandleFunc("GET /api/history", s.handlers.HandleHistory)
	mux.HandleFunc("/ws", s.handlers.HandleWS)
	return mux
}

// Start runs the hub and serves until Shutdown.
func (s *Server) Start() error {
	go s.hub.Run()
	s.log.Info("server starting", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every connection and waits for
// bot turns and archive writes to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.hub.Stop()
	s.coord.Wait()
	return err
}
