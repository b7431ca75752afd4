// Package audit persists one record per concluded game when a Postgres
// DSN is configured; otherwise games are never written anywhere.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/chess-session-server/internal/coordinator"
)

const createTableDDL = `CREATE TABLE IF NOT EXISTS audit_games (
	game_instance_id TEXT PRIMARY KEY,
	white_session_id TEXT NOT NULL,
	black_session_id TEXT NOT NULL,
	moves_san JSONB NOT NULL,
	final_fen TEXT NOT NULL,
	outcome TEXT NOT NULL,
	reason TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ NOT NULL
)`

const upsertDML = `INSERT INTO audit_games (
	game_instance_id, white_session_id, black_session_id, moves_san,
	final_fen, outcome, reason, started_at, ended_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (game_instance_id) DO UPDATE SET
	moves_san=EXCLUDED.moves_san,
	final_fen=EXCLUDED.final_fen,
	outcome=EXCLUDED.outcome,
	reason=EXCLUDED.reason,
	ended_at=EXCLUDED.ended_at`

// PostgresSink writes every AuditRecord to a Postgres table, which
// NewPostgresSink creates if missing. Record never propagates errors to the
// coordinator; failures are logged only.
type PostgresSink struct {
	db  *sql.DB
	log *zap.Logger
}

// NewPostgresSink opens dsn, creates audit_games if missing, and verifies
// connectivity before returning.
func NewPostgresSink(dsn string, log *zap.Logger) (*PostgresSink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("audit dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createTableDDL); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresSink{db: db, log: log}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record upserts one finished game. Called outside the coordinator's
// mutex; errors are logged, never returned.
func (s *PostgresSink) Record(rec coordinator.AuditRecord) {
	if s == nil || s.db == nil {
		return
	}
	movesRaw, err := json.Marshal(rec.MovesSAN)
	if err != nil {
		s.log.Error("marshal audit moves", zap.Error(err), zap.String("game_instance_id", rec.GameInstanceID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = s.db.ExecContext(ctx, upsertDML,
		rec.GameInstanceID, rec.WhiteSessionID, rec.BlackSessionID, string(movesRaw),
		rec.FinalFEN, rec.Outcome, rec.Reason, rec.StartedAt, rec.EndedAt,
	)
	if err != nil {
		s.log.Error("record audit entry", zap.Error(err), zap.String("game_instance_id", rec.GameInstanceID))
	}
}
