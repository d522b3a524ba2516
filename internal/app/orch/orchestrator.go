package orch

import (
	"context"
	"time"

	"github.com/dkeye/Calls/internal/app"
	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/dkeye/Calls/internal/observability"
	"github.com/rs/zerolog/log"
)

// Orchestrator coordinates call lifecycles: it owns the room store, talks
// to presence for reachability and pushes notifications after each
// committed transition.
type Orchestrator struct {
	Presence    *app.PresenceRegistry
	Rooms       *app.CallRoomStore
	Router      *app.SignalingRouter
	Notifier    core.Notifier
	History     core.CallHistory
	Metrics     *observability.Metrics

	// RingTimeout bounds how long a room may stay CALLING; zero disables
	// the reaper.
	RingTimeout time.Duration

	Now       func() time.Time
	NewRoomID func(a, b domain.UserID) domain.RoomID
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) roomID(a, b domain.UserID) domain.RoomID {
	if o.NewRoomID != nil {
		return o.NewRoomID(a, b)
	}
	return domain.NewRoomID(a, b)
}

func (o *Orchestrator) notify(uid domain.UserID, ev core.Event) bool {
	if o.Notifier == nil {
		return false
	}
	if o.Notifier.Notify(uid, ev) {
		return true
	}
	o.Metrics.IncDeliveryMiss(ev.EventType())
	log.Debug().Str("module", "app.orch").Str("user", string(uid)).Str("type", ev.EventType()).Msg("notification not delivered")
	return false
}

// record runs one history write. Failures are logged and dropped.
func (o *Orchestrator) record(op string, roomID domain.RoomID, fn func(ctx context.Context, h core.CallHistory) error) {
	if o.History == nil {
		return
	}
	if err := fn(context.Background(), o.History); err != nil {
		o.Metrics.IncHistoryFailure(op)
		log.Warn().Err(err).Str("module", "app.orch").Str("op", op).Str("room_id", string(roomID)).Msg("call history write failed")
	}
}

func (o *Orchestrator) syncGauges() {
	o.Metrics.SetActiveCalls(o.Rooms.Len())
}

// Connect registers sid as the live session of uid.
func (o *Orchestrator) Connect(uid domain.UserID, sid core.SessionID) (core.SessionID, bool) {
	return o.Presence.Join(uid, sid)
}

func (o *Orchestrator) KeepAlive(uid domain.UserID, sid core.SessionID) bool {
	return o.Presence.KeepAlive(uid, sid)
}

// Disconnect only drops presence. Calls of the user are left to their own
// hangup or the ringing reaper.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	o.Presence.Leave(sid)
}

func (o *Orchestrator) Relay(env domain.SignalEnvelope) bool {
	return o.Router.Relay(env)
}

func (o *Orchestrator) OnlineCount() int {
	return o.Presence.Count()
}
