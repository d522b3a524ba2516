package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists call history in a single SQLite file. Times are unix
// milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS call_history (
			room_id     TEXT PRIMARY KEY,
			caller_id   TEXT NOT NULL,
			callee_id   TEXT NOT NULL,
			call_type   TEXT NOT NULL,
			status      TEXT NOT NULL,
			ended_by    TEXT NOT NULL DEFAULT '',
			created_at  INTEGER NOT NULL,
			accepted_at INTEGER,
			ended_at    INTEGER,
			duration_ms INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_call_history_caller ON call_history (caller_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_call_history_callee ON call_history (callee_id, created_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create call_history table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, rec core.CallRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO call_history (room_id, caller_id, callee_id, call_type, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(rec.RoomID), string(rec.CallerID), string(rec.CalleeID), string(rec.Type),
		string(StatusPending), rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create call record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) MarkAccepted(ctx context.Context, roomID domain.RoomID) error {
	return s.exec(ctx, "mark accepted",
		`UPDATE call_history SET status=?, accepted_at=? WHERE room_id=?`,
		string(StatusAccepted), time.Now().UnixMilli(), string(roomID))
}

func (s *SQLiteStore) MarkRejected(ctx context.Context, roomID domain.RoomID) error {
	return s.exec(ctx, "mark rejected",
		`UPDATE call_history SET status=?, ended_at=? WHERE room_id=?`,
		string(StatusRejected), time.Now().UnixMilli(), string(roomID))
}

func (s *SQLiteStore) MarkEnded(ctx context.Context, roomID domain.RoomID, endedBy domain.UserID, duration time.Duration) error {
	return s.exec(ctx, "mark ended",
		`UPDATE call_history SET status=?, ended_by=?, duration_ms=?, ended_at=? WHERE room_id=?`,
		string(StatusEnded), string(endedBy), duration.Milliseconds(), time.Now().UnixMilli(), string(roomID))
}

func (s *SQLiteStore) ListByUser(ctx context.Context, uid domain.UserID, limit int) ([]Entry, error) {
	limit = normLimit(limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, caller_id, callee_id, call_type, status, ended_by, created_at, accepted_at, ended_at, duration_ms
		 FROM call_history WHERE caller_id=? OR callee_id=? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(uid), string(uid), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query call history: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e                      Entry
			roomID, caller, callee string
			typ, st, endedBy       string
			created                int64
			accepted, endedAt      sql.NullInt64
		)
		if err := rows.Scan(&roomID, &caller, &callee, &typ, &st, &endedBy, &created, &accepted, &endedAt, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scan call history row: %w", err)
		}
		e.RoomID = domain.RoomID(roomID)
		e.CallerID = domain.UserID(caller)
		e.CalleeID = domain.UserID(callee)
		e.Type = domain.CallType(typ)
		e.Status = Status(st)
		e.EndedBy = domain.UserID(endedBy)
		e.CreatedAt = time.UnixMilli(created).UTC()
		e.AcceptedAt = millisPtr(accepted)
		e.EndedAt = millisPtr(endedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call history rows: %w", err)
	}
	return out, nil
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
