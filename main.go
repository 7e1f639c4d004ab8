package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"unoserver/internal/archive"
	"unoserver/internal/config"
	"unoserver/internal/coordinator"
	"unoserver/internal/lobby"
	"unoserver/internal/logging"
	"unoserver/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "unoserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := archive.Open(cfg.Archive, log.Named("archive"))
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms := lobby.NewManager(log.Named("lobby"), lobby.Expiry{
		Waiting:  cfg.WaitingRoomTTL,
		Interval: cfg.SweepInterval,
	})
	go rooms.Run(ctx)

	srv := server.New(ctx, server.Options{
		Port:           cfg.Port,
		StaticDir:      cfg.StaticDir,
		AllowedOrigins: cfg.AllowedOrigins,
		Coordinator: coordinator.Options{
			BotDelay: cfg.BotDelay,
			Seed:     cfg.GameSeed,
		},
	}, rooms, store, log)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	log.Info("uno server listening",
		zap.Int("port", cfg.Port),
		zap.String("archive", cfg.Archive.Mode),
		zap.Duration("bot_delay", cfg.BotDelay))

	select {
	case err = <-errc:
		stop()
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http shutdown", zap.Error(serr))
	}
	return err
}
