// Package config reads server settings from the environment and flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"unoserver/internal/archive"
	"unoserver/internal/coordinator"
)

type Config struct {
	Port           int
	BotDelay       time.Duration
	WaitingRoomTTL time.Duration
	SweepInterval  time.Duration
	AllowedOrigins []string
	StaticDir      string
	GameSeed       uint64
	Archive        archive.Options
	LogLevel       string
	LogDev         bool
}

func Default() Config {
	return Config{
		Port:           8080,
		BotDelay:       coordinator.DefaultBotDelay,
		WaitingRoomTTL: 10 * time.Minute,
		SweepInterval:  time.Minute,
		Archive: archive.Options{
			Mode:       archive.ModeMemory,
			SQLitePath: "data/uno.db",
		},
		LogLevel: "info",
	}
}

// Load applies environment overrides to Default, then command-line flags.
func Load(args []string) (Config, error) {
	cfg := Default()
	env := envReader{}

	cfg.Port = env.getInt("PORT", cfg.Port)
	cfg.BotDelay = env.getDuration("BOT_DELAY", cfg.BotDelay)
	cfg.WaitingRoomTTL = env.getDuration("WAITING_ROOM_TTL", cfg.WaitingRoomTTL)
	cfg.SweepInterval = env.getDuration("SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.AllowedOrigins = splitList(os.Getenv("ORIGIN_ALLOWLIST"))
	cfg.StaticDir = strings.TrimSpace(os.Getenv("STATIC_DIR"))
	cfg.GameSeed = env.getUint("GAME_SEED", cfg.GameSeed)
	cfg.Archive.Mode = env.getString("ARCHIVE_MODE", cfg.Archive.Mode)
	cfg.Archive.SQLitePath = env.getString("ARCHIVE_SQLITE_PATH", cfg.Archive.SQLitePath)
	cfg.Archive.DSN = env.getString("ARCHIVE_DSN", cfg.Archive.DSN)
	cfg.LogLevel = env.getString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogDev = env.getBool("LOG_DEV", cfg.LogDev)
	if env.err != nil {
		return Config{}, env.err
	}

	fs := flag.NewFlagSet("unoserver", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "server port")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.BotDelay < 0 {
		return Config{}, fmt.Errorf("BOT_DELAY=%s must not be negative", cfg.BotDelay)
	}
	return cfg, nil
}

// envReader records the first malformed variable it meets.
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
}

func (e *envReader) getString(key, def string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return def
}

func (e *envReader) getInt(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *envReader) getUint(key string, def uint64) uint64 {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *envReader) getDuration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

func (e *envReader) getBool(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return b
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
