package history

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists call history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS call_history (
			room_id TEXT PRIMARY KEY,
			caller_id TEXT NOT NULL,
			callee_id TEXT NOT NULL,
			call_type TEXT NOT NULL,
			status TEXT NOT NULL,
			ended_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			accepted_at TIMESTAMPTZ,
			ended_at TIMESTAMPTZ,
			duration_ms BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_call_history_caller ON call_history (caller_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_call_history_callee ON call_history (callee_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, rec core.CallRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO call_history (room_id, caller_id, callee_id, call_type, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (room_id) DO NOTHING`,
		rec.RoomID, rec.CallerID, rec.CalleeID, rec.Type, StatusPending, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create call record: %w", err)
	}
	return nil
}

func (s *PostgresStore) exec(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) MarkAccepted(ctx context.Context, roomID domain.RoomID) error {
	return s.exec(ctx, "mark accepted",
		`UPDATE call_history SET status=$2, accepted_at=now() WHERE room_id=$1`,
		roomID, StatusAccepted)
}

func (s *PostgresStore) MarkRejected(ctx context.Context, roomID domain.RoomID) error {
	return s.exec(ctx, "mark rejected",
		`UPDATE call_history SET status=$2, ended_at=now() WHERE room_id=$1`,
		roomID, StatusRejected)
}

func (s *PostgresStore) MarkEnded(ctx context.Context, roomID domain.RoomID, endedBy domain.UserID, duration time.Duration) error {
	return s.exec(ctx, "mark ended",
		`UPDATE call_history SET status=$2, ended_by=$3, duration_ms=$4, ended_at=now() WHERE room_id=$1`,
		roomID, StatusEnded, endedBy, duration.Milliseconds())
}

func (s *PostgresStore) ListByUser(ctx context.Context, uid domain.UserID, limit int) ([]Entry, error) {
	limit = normLimit(limit)
	rows, err := s.pool.Query(ctx,
		`SELECT room_id, caller_id, callee_id, call_type, status, ended_by, created_at, accepted_at, ended_at, duration_ms
		 FROM call_history WHERE caller_id=$1 OR callee_id=$1 ORDER BY created_at DESC LIMIT $2`,
		uid, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query call history: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RoomID, &e.CallerID, &e.CalleeID, &e.Type, &e.Status, &e.EndedBy,
			&e.CreatedAt, &e.AcceptedAt, &e.EndedAt, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scan call history row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call history rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
