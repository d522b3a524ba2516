package app

import (
	"sync"
	"time"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/rs/zerolog/log"
)

type PresenceEventKind string

const (
	PresenceJoined PresenceEventKind = "join"
	PresenceLeft   PresenceEventKind = "leave"
)

// PresenceEvent is emitted after a join or leave has been committed.
type PresenceEvent struct {
	Kind      PresenceEventKind
	UserID    domain.UserID
	SessionID core.SessionID
}

// PresenceRegistry is the source of truth for "is user X reachable right now".
// Both directions of the user<->session mapping live under one lock and are
// only ever changed together.
type PresenceRegistry struct {
	mu        sync.RWMutex
	byUser    map[domain.UserID]*core.Session
	bySession map[core.SessionID]domain.UserID

	lmu       sync.RWMutex
	listeners []func(PresenceEvent)

	now func() time.Time
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byUser:    make(map[domain.UserID]*core.Session),
		bySession: make(map[core.SessionID]domain.UserID),
		now:       time.Now,
	}
}

// OnChange registers fn to run after every successful Join/Leave.
// Listeners run on the caller's goroutine with no registry lock held.
func (r *PresenceRegistry) OnChange(fn func(PresenceEvent)) {
	r.lmu.Lock()
	r.listeners = append(r.listeners, fn)
	r.lmu.Unlock()
}

func (r *PresenceRegistry) emit(ev PresenceEvent) {
	r.lmu.RLock()
	fns := make([]func(PresenceEvent), len(r.listeners))
	copy(fns, r.listeners)
	r.lmu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Join maps uid to sid. A previous session of uid is superseded and returned
// so the transport can retire it. Last join wins.
func (r *PresenceRegistry) Join(uid domain.UserID, sid core.SessionID) (superseded core.SessionID, ok bool) {
	now := r.now()

	r.mu.Lock()
	if prev, exists := r.byUser[uid]; exists {
		if prev.SessionID == sid {
			prev.LastKeepAliveAt = now
			r.mu.Unlock()
			r.emit(PresenceEvent{Kind: PresenceJoined, UserID: uid, SessionID: sid})
			return "", false
		}
		delete(r.bySession, prev.SessionID)
		superseded, ok = prev.SessionID, true
	}
	// sid reused by another identity: drop that identity's mapping too.
	if other, exists := r.bySession[sid]; exists && other != uid {
		delete(r.byUser, other)
	}
	r.byUser[uid] = &core.Session{
		UserID:          uid,
		SessionID:       sid,
		ConnectedAt:     now,
		LastKeepAliveAt: now,
	}
	r.bySession[sid] = uid
	r.mu.Unlock()

	log.Info().Str("module", "app.presence").Str("user", string(uid)).Str("sid", string(sid)).Bool("superseded", ok).Msg("joined")
	r.emit(PresenceEvent{Kind: PresenceJoined, UserID: uid, SessionID: sid})
	return superseded, ok
}

// KeepAlive refreshes the session of uid. A sid that is not the current one
// for uid is ignored.
func (r *PresenceRegistry) KeepAlive(uid domain.UserID, sid core.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[uid]
	if !ok || s.SessionID != sid {
		log.Debug().Str("module", "app.presence").Str("user", string(uid)).Str("sid", string(sid)).Msg("keepalive for stale session")
		return false
	}
	s.LastKeepAliveAt = r.now()
	return true
}

// Leave removes whichever user currently owns sid. Unknown sids are a no-op.
func (r *PresenceRegistry) Leave(sid core.SessionID) bool {
	r.mu.Lock()
	uid, ok := r.bySession[sid]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.bySession, sid)
	if s, exists := r.byUser[uid]; exists && s.SessionID == sid {
		delete(r.byUser, uid)
	}
	r.mu.Unlock()

	log.Info().Str("module", "app.presence").Str("user", string(uid)).Str("sid", string(sid)).Msg("left")
	r.emit(PresenceEvent{Kind: PresenceLeft, UserID: uid, SessionID: sid})
	return true
}

func (r *PresenceRegistry) IsOnline(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[uid]
	return ok
}

// Resolve returns the current session of uid.
func (r *PresenceRegistry) Resolve(uid domain.UserID) (core.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[uid]
	if !ok {
		return "", false
	}
	return s.SessionID, true
}

// UserOf is the reverse lookup of Resolve.
func (r *PresenceRegistry) UserOf(sid core.SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uid, ok := r.bySession[sid]
	return uid, ok
}

// Session returns a copy of the session record of uid.
func (r *PresenceRegistry) Session(uid domain.UserID) (core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[uid]
	if !ok {
		return core.Session{}, false
	}
	return *s, true
}

func (r *PresenceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
