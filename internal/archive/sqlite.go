package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps records in a local SQLite file.
type SQLiteStore struct {
	sqlStore
}

func NewSQLiteStore(dbPath string, log *zap.Logger) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = execAll(ctx, db, []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`
CREATE TABLE IF NOT EXISTS game_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    room_code TEXT NOT NULL,
    winner TEXT NOT NULL,
    players_json TEXT NOT NULL DEFAULT '[]',
    moves INTEGER NOT NULL,
    started_at_ms INTEGER NOT NULL,
    ended_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_game_records_ended_at ON game_records(ended_at_ms)`,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite archive: %w", err)
	}

	log.Info("sqlite archive ready", zap.String("path", dbPath))
	return &SQLiteStore{sqlStore{
		db:  db,
		log: log,
		insertStmt: `
INSERT INTO game_records (room_code, winner, players_json, moves, started_at_ms, ended_at_ms)
VALUES (?, ?, ?, ?, ?, ?)`,
		recentStmt: `
SELECT room_code, winner, players_json, moves, started_at_ms, ended_at_ms
FROM game_records
ORDER BY ended_at_ms DESC, id DESC
LIMIT ?`,
	}}, nil
}
