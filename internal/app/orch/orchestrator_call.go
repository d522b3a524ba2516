package orch

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Calls/internal/app"
	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	EndReasonHangup  = "hangup"
	EndReasonTimeout = "timeout"
)

// Invite opens a CALLING room and rings the callee. An offline callee is not
// an error: the room stays CALLING until someone answers, hangs up or the
// reaper expires it.
func (o *Orchestrator) Invite(caller, callee domain.UserID, typ domain.CallType) (domain.RoomID, error) {
	if typ != domain.CallAudio && typ != domain.CallVideo {
		return "", domain.ErrInvalidCallType
	}
	now := o.now()
	room := domain.CallRoom{
		ID:        o.roomID(caller, callee),
		CallerID:  caller,
		CalleeID:  callee,
		Type:      typ,
		CreatedAt: now,
	}
	if err := o.Rooms.Create(room); err != nil {
		return "", err
	}
	o.Metrics.IncInvite()
	o.Metrics.IncTransition(string(domain.StatusCalling))
	o.syncGauges()

	o.record("create", room.ID, func(ctx context.Context, h core.CallHistory) error {
		return h.Create(ctx, core.CallRecord{
			RoomID:    room.ID,
			CallerID:  caller,
			CalleeID:  callee,
			Type:      typ,
			CreatedAt: now,
		})
	})

	delivered := o.notify(callee, core.CallEvent{
		Type:     core.EventCallInvitation,
		RoomID:   room.ID,
		CallerID: caller,
		CalleeID: callee,
		CallType: typ,
	})
	log.Info().
		Str("module", "app.orch").
		Str("room_id", string(room.ID)).
		Str("caller", string(caller)).
		Str("callee", string(callee)).
		Str("call_type", string(typ)).
		Bool("delivered", delivered).
		Msg("invite")
	return room.ID, nil
}

// Accept moves CALLING to ACCEPTED and tells the caller.
func (o *Orchestrator) Accept(roomID domain.RoomID, callee domain.UserID) error {
	room, err := o.Rooms.Transition(roomID, callee, domain.StatusAccepted, o.now())
	if err != nil {
		return o.rejectOp("accept", roomID, callee, err)
	}
	o.Metrics.IncTransition(string(domain.StatusAccepted))

	o.notify(room.CallerID, core.CallEvent{
		Type:     core.EventCallAccepted,
		RoomID:   room.ID,
		CallerID: room.CallerID,
		CalleeID: room.CalleeID,
		CallType: room.Type,
	})
	o.record("accept", room.ID, func(ctx context.Context, h core.CallHistory) error {
		return h.MarkAccepted(ctx, room.ID)
	})
	log.Info().Str("module", "app.orch").Str("room_id", string(room.ID)).Msg("accepted")
	return nil
}

// Reject moves CALLING to REJECTED, drops the room and tells the caller.
func (o *Orchestrator) Reject(roomID domain.RoomID, callee domain.UserID) error {
	room, err := o.Rooms.Transition(roomID, callee, domain.StatusRejected, o.now())
	if err != nil {
		return o.rejectOp("reject", roomID, callee, err)
	}
	o.Metrics.IncTransition(string(domain.StatusRejected))
	o.syncGauges()

	o.notify(room.CallerID, core.CallEvent{
		Type:     core.EventCallRejected,
		RoomID:   room.ID,
		CallerID: room.CallerID,
		CalleeID: room.CalleeID,
		CallType: room.Type,
	})
	o.record("reject", room.ID, func(ctx context.Context, h core.CallHistory) error {
		return h.MarkRejected(ctx, room.ID)
	})
	log.Info().Str("module", "app.orch").Str("room_id", string(room.ID)).Msg("rejected")
	return nil
}

// Hangup ends the room from CALLING or ACCEPTED and tells the other side.
// Duration is only non-zero for answered calls.
func (o *Orchestrator) Hangup(roomID domain.RoomID, uid domain.UserID) error {
	now := o.now()
	room, err := o.Rooms.Transition(roomID, uid, domain.StatusEnded, now)
	if err != nil {
		return o.rejectOp("hangup", roomID, uid, err)
	}
	o.Metrics.IncTransition(string(domain.StatusEnded))
	o.syncGauges()

	var duration time.Duration
	if !room.AcceptedAt.IsZero() {
		duration = now.Sub(room.AcceptedAt)
	}

	o.notify(room.Counterpart(uid), core.CallEndedEvent{
		Type:       core.EventCallEnded,
		RoomID:     room.ID,
		EndedBy:    uid,
		DurationMS: duration.Milliseconds(),
		Reason:     EndReasonHangup,
	})
	o.recordEnd(room, uid, duration)
	log.Info().Str("module", "app.orch").Str("room_id", string(room.ID)).Str("ended_by", string(uid)).Dur("duration", duration).Msg("ended")
	return nil
}

// recordEnd writes the history entry of a room that left the store through
// hangup or expiry. A call that was never answered is abandoned and is
// recorded as rejected.
func (o *Orchestrator) recordEnd(room domain.CallRoom, endedBy domain.UserID, duration time.Duration) {
	if room.AcceptedAt.IsZero() {
		o.record("reject", room.ID, func(ctx context.Context, h core.CallHistory) error {
			return h.MarkRejected(ctx, room.ID)
		})
		return
	}
	o.record("end", room.ID, func(ctx context.Context, h core.CallHistory) error {
		return h.MarkEnded(ctx, room.ID, endedBy, duration)
	})
}

func (o *Orchestrator) rejectOp(op string, roomID domain.RoomID, uid domain.UserID, err error) error {
	logger := log.With().Str("module", "app.orch").Str("op", op).Str("room_id", string(roomID)).Str("user", string(uid)).Logger()
	if IsStale(err) {
		o.Metrics.IncStale(op)
		logger.Debug().Err(err).Msg("stale call operation ignored")
		return err
	}
	logger.Warn().Err(err).Msg("call operation refused")
	return err
}

// IsStale reports whether err only means the operation lost a race: the
// room is already gone or has moved past the requested state.
func IsStale(err error) bool {
	return errors.Is(err, app.ErrStaleRoom) || errors.Is(err, app.ErrInvalidTransition)
}
