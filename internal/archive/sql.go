package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// sqlStore is shared by the SQLite and Postgres stores; only the dialect
// specific statements differ.
type sqlStore struct {
	db         *sql.DB
	log        *zap.Logger
	insertStmt string
	recentStmt string
}

func (s *sqlStore) Save(ctx context.Context, rec Record) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.insertStmt,
		rec.RoomCode,
		rec.Winner,
		string(players),
		rec.Moves,
		rec.StartedAt.UTC().UnixMilli(),
		rec.EndedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert game record %s: %w", rec.RoomCode, err)
	}
	return nil
}

func (s *sqlStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.recentStmt, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query game records: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec       Record
			players   string
			startedMs int64
			endedMs   int64
		)
		if err := rows.Scan(&rec.RoomCode, &rec.Winner, &players, &rec.Moves, &startedMs, &endedMs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(players), &rec.Players); err != nil {
			s.log.Warn("bad players column", zap.String("room", rec.RoomCode), zap.Error(err))
		}
		rec.StartedAt = time.UnixMilli(startedMs).UTC()
		rec.EndedAt = time.UnixMilli(endedMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func execAll(ctx context.Context, db *sql.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
