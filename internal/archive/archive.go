// Package archive keeps a record of every finished game.
package archive

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"

	DefaultLimit = 20
	MaxLimit     = 100

	memoryCapacity = 500
)

// Record summarizes one finished game.
type Record struct {
	RoomCode  string    `json:"roomCode"`
	Winner    string    `json:"winner"`
	Players   []string  `json:"players"`
	Moves     int       `json:"moves"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// Store persists finished-game records.
type Store interface {
	Save(ctx context.Context, rec Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Options selects and configures a store.
type Options struct {
	Mode       string
	SQLitePath string
	DSN        string
}

// Open builds the store named by opts.Mode.
func Open(opts Options, log *zap.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "", ModeMemory, "mem":
		return NewMemoryStore(), nil
	case ModeSQLite, "local":
		return NewSQLiteStore(opts.SQLitePath, log)
	case ModePostgres, "postgresql", "db":
		return NewPostgresStore(opts.DSN, log)
	default:
		return nil, fmt.Errorf("invalid archive mode %q (supported: %s, %s, %s)", opts.Mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}

// ClampLimit maps a requested page size into [1, MaxLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// MemoryStore keeps the most recent records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if len(m.records) > memoryCapacity {
		m.records = m.records[len(m.records)-memoryCapacity:]
	}
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = ClampLimit(limit)
	out := make([]Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
