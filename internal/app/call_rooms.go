package app

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Calls/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	// ErrStaleRoom means the room already reached a terminal state (or never
	// existed). Callers treat it as an idempotent no-op.
	ErrStaleRoom         = errors.New("stale room")
	ErrRoomExists        = errors.New("room already exists")
	ErrNotParticipant    = errors.New("not a participant of the room")
	ErrNotCallee         = errors.New("only the callee may answer")
	ErrInvalidTransition = errors.New("invalid call transition")
)

// CallRoomStore owns every live CallRoom. Each exported operation is one
// check-then-act step under the store lock; rooms are handed out as copies.
type CallRoomStore struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]*domain.CallRoom
}

func NewCallRoomStore() *CallRoomStore {
	return &CallRoomStore{rooms: make(map[domain.RoomID]*domain.CallRoom)}
}

func (s *CallRoomStore) Create(room domain.CallRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return ErrRoomExists
	}
	room.Status = domain.StatusCalling
	s.rooms[room.ID] = &room
	log.Debug().Str("module", "app.rooms").Str("room_id", string(room.ID)).Msg("room created")
	return nil
}

// Transition moves room id to status `to` on behalf of actor. The returned
// room reflects the committed state. Terminal rooms are removed before the
// lock is released, so a racing second transition sees ErrStaleRoom.
func (s *CallRoomStore) Transition(id domain.RoomID, actor domain.UserID, to domain.CallStatus, at time.Time) (domain.CallRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return domain.CallRoom{}, ErrStaleRoom
	}
	if !room.IsParticipant(actor) {
		return domain.CallRoom{}, ErrNotParticipant
	}
	if (to == domain.StatusAccepted || to == domain.StatusRejected) && actor != room.CalleeID {
		return domain.CallRoom{}, ErrNotCallee
	}
	if !room.Status.CanTransition(to) {
		return domain.CallRoom{}, ErrInvalidTransition
	}

	room.Status = to
	if to == domain.StatusAccepted {
		room.AcceptedAt = at
	}
	out := *room
	if to.Terminal() {
		delete(s.rooms, id)
	}
	return out, nil
}

// ExpireCalling ends every room still ringing since before cutoff and
// returns them. Rooms that were answered are left alone.
func (s *CallRoomStore) ExpireCalling(cutoff time.Time) []domain.CallRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CallRoom
	for id, room := range s.rooms {
		if room.Status != domain.StatusCalling || !room.CreatedAt.Before(cutoff) {
			continue
		}
		room.Status = domain.StatusEnded
		out = append(out, *room)
		delete(s.rooms, id)
	}
	return out
}

func (s *CallRoomStore) Get(id domain.RoomID) (domain.CallRoom, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return domain.CallRoom{}, false
	}
	return *room, true
}

// List returns all rooms ordered by creation time.
func (s *CallRoomStore) List() []domain.CallRoom {
	s.mu.Lock()
	out := make([]domain.CallRoom, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, *r)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *CallRoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
