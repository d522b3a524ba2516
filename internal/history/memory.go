package history

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
)

// MemoryStore keeps call history in process, for dev and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.RoomID]*Entry
	order   []domain.RoomID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[domain.RoomID]*Entry)}
}

func (s *MemoryStore) Create(_ context.Context, rec core.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if _, ok := s.entries[rec.RoomID]; ok {
		return nil
	}
	s.order = append(s.order, rec.RoomID)
	s.entries[rec.RoomID] = &Entry{
		RoomID:    rec.RoomID,
		CallerID:  rec.CallerID,
		CalleeID:  rec.CalleeID,
		Type:      rec.Type,
		Status:    StatusPending,
		CreatedAt: created,
	}
	return nil
}

func (s *MemoryStore) update(roomID domain.RoomID, fn func(e *Entry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[roomID]
	if !ok {
		return ErrNotFound
	}
	fn(e)
	return nil
}

func (s *MemoryStore) MarkAccepted(_ context.Context, roomID domain.RoomID) error {
	now := time.Now().UTC()
	return s.update(roomID, func(e *Entry) {
		e.Status = StatusAccepted
		e.AcceptedAt = &now
	})
}

func (s *MemoryStore) MarkRejected(_ context.Context, roomID domain.RoomID) error {
	now := time.Now().UTC()
	return s.update(roomID, func(e *Entry) {
		e.Status = StatusRejected
		e.EndedAt = &now
	})
}

func (s *MemoryStore) MarkEnded(_ context.Context, roomID domain.RoomID, endedBy domain.UserID, duration time.Duration) error {
	now := time.Now().UTC()
	return s.update(roomID, func(e *Entry) {
		e.Status = StatusEnded
		e.EndedBy = endedBy
		e.EndedAt = &now
		e.DurationMS = duration.Milliseconds()
	})
}

// Get returns a copy of one entry.
func (s *MemoryStore) Get(roomID domain.RoomID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[roomID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// ListByUser returns the newest calls uid took part in, newest first.
func (s *MemoryStore) ListByUser(_ context.Context, uid domain.UserID, limit int) ([]Entry, error) {
	limit = normLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[s.order[i]]
		if e.CallerID == uid || e.CalleeID == uid {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
