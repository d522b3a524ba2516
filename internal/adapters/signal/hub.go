package signal

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/Calls/internal/app"
	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/dkeye/Calls/internal/observability"
	"github.com/rs/zerolog/log"
)

// Resolver finds the live session of a user.
type Resolver interface {
	Resolve(uid domain.UserID) (core.SessionID, bool)
}

// Hub holds every attached connection and implements core.Notifier on top
// of presence.
type Hub struct {
	presence Resolver
	policy   app.Policy
	metrics  *observability.Metrics

	mu    sync.RWMutex
	conns map[core.SessionID]core.SignalConnection
}

func NewHub(presence Resolver, policy app.Policy, metrics *observability.Metrics) *Hub {
	if policy == nil {
		policy = app.KickPolicy{}
	}
	return &Hub{
		presence: presence,
		policy:   policy,
		metrics:  metrics,
		conns:    make(map[core.SessionID]core.SignalConnection),
	}
}

func (h *Hub) Attach(sid core.SessionID, c core.SignalConnection) {
	h.mu.Lock()
	h.conns[sid] = c
	h.mu.Unlock()
}

func (h *Hub) Detach(sid core.SessionID) {
	h.mu.Lock()
	delete(h.conns, sid)
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) conn(sid core.SessionID) (core.SignalConnection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[sid]
	return c, ok
}

func encode(ev core.Event) (core.Frame, bool) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("type", ev.EventType()).Msg("encode event")
		return nil, false
	}
	return b, true
}

// Send delivers ev to one session, applying the backpressure policy.
func (h *Hub) Send(sid core.SessionID, ev core.Event) bool {
	c, ok := h.conn(sid)
	if !ok {
		return false
	}
	f, ok := encode(ev)
	if !ok {
		return false
	}
	err := c.TrySend(f)
	if err == nil {
		return true
	}
	if errors.Is(err, ErrBackpressure) {
		h.metrics.IncBackpressure()
		if h.policy.OnBackPressure(sid) == app.KickSession {
			log.Warn().Str("module", "signal.hub").Str("sid", string(sid)).Msg("send buffer full, closing session")
			c.Close()
		}
	}
	return false
}

// Notify resolves uid through presence and delivers ev to that session.
func (h *Hub) Notify(uid domain.UserID, ev core.Event) bool {
	sid, ok := h.presence.Resolve(uid)
	if !ok {
		return false
	}
	return h.Send(sid, ev)
}

// Broadcast delivers ev to every attached connection. Full buffers just miss
// the event.
func (h *Hub) Broadcast(ev core.Event) {
	f, ok := encode(ev)
	if !ok {
		return
	}
	h.mu.RLock()
	conns := make([]core.SignalConnection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.TrySend(f); errors.Is(err, ErrBackpressure) {
			h.metrics.IncBackpressure()
		}
	}
}

type supersededEvent struct {
	Type string `json:"type"`
}

func (supersededEvent) EventType() string { return "session.superseded" }

// Retire tells a superseded session why it is going away and closes it.
func (h *Hub) Retire(sid core.SessionID) {
	c, ok := h.conn(sid)
	if !ok {
		return
	}
	if f, ok := encode(supersededEvent{Type: "session.superseded"}); ok {
		_ = c.TrySend(f)
	}
	c.Close()
	log.Info().Str("module", "signal.hub").Str("sid", string(sid)).Msg("retired superseded session")
}
