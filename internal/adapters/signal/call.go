package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Calls/internal/app"
	"github.com/dkeye/Calls/internal/app/orch"
	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
)

var errMissingRoom = errors.New("roomId is required")

func (ctl *SignalWSController) handleInvite(c *WsSignalConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		CallerID string `json:"callerId"`
		CalleeID string `json:"calleeId"`
		CallType string `json:"callType"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.refuse(c, "call.invite", err)
		return
	}
	caller, err := identity(c, p.CallerID)
	if err != nil {
		ctl.refuse(c, "call.invite", err)
		return
	}
	callee, err := domain.ParseUserID(p.CalleeID)
	if err != nil {
		ctl.refuse(c, "call.invite", err)
		return
	}
	typ, err := domain.ParseCallType(p.CallType)
	if err != nil {
		ctl.refuse(c, "call.invite", err)
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(caller) {
		ctl.sendError(c, "rate_limited")
		return
	}

	roomID, err := ctl.Orch.Invite(caller, callee, typ)
	if err != nil {
		ctl.sendError(c, "invite_failed")
		return
	}
	ctl.sendJSON(c, core.CallEvent{
		Type:     core.EventCallCreated,
		RoomID:   roomID,
		CallerID: caller,
		CalleeID: callee,
		CallType: typ,
	})
}

type roomPayload struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	CalleeID string `json:"calleeId"`
	UserID   string `json:"userId"`
}

// parseRoomOp validates a room-scoped message. claimed picks the identity
// field that the message type uses.
func (ctl *SignalWSController) parseRoomOp(c *WsSignalConn, msgType string, data []byte, claimed func(roomPayload) string) (domain.RoomID, domain.UserID, bool) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.refuse(c, msgType, err)
		return "", "", false
	}
	if p.RoomID == "" {
		ctl.refuse(c, msgType, errMissingRoom)
		return "", "", false
	}
	uid, err := identity(c, claimed(p))
	if err != nil {
		ctl.refuse(c, msgType, err)
		return "", "", false
	}
	return domain.RoomID(p.RoomID), uid, true
}

func calleeField(p roomPayload) string { return p.CalleeID }
func userField(p roomPayload) string { return p.UserID }

func (ctl *SignalWSController) handleAccept(c *WsSignalConn, data []byte) {
	roomID, uid, ok := ctl.parseRoomOp(c, "call.accept", data, calleeField)
	if !ok {
		return
	}
	ctl.answerOpResult(c, ctl.Orch.Accept(roomID, uid))
}

func (ctl *SignalWSController) handleReject(c *WsSignalConn, data []byte) {
	roomID, uid, ok := ctl.parseRoomOp(c, "call.reject", data, calleeField)
	if !ok {
		return
	}
	ctl.answerOpResult(c, ctl.Orch.Reject(roomID, uid))
}

func (ctl *SignalWSController) handleHangup(c *WsSignalConn, data []byte) {
	roomID, uid, ok := ctl.parseRoomOp(c, "call.hangup", data, userField)
	if !ok {
		return
	}
	ctl.answerOpResult(c, ctl.Orch.Hangup(roomID, uid))
}

// answerOpResult keeps stale and out-of-order operations silent; only an
// attempt to act on somebody else's room is reported back.
func (ctl *SignalWSController) answerOpResult(c *WsSignalConn, err error) {
	switch {
	case err == nil, orch.IsStale(err):
		return
	case errors.Is(err, app.ErrNotParticipant), errors.Is(err, app.ErrNotCallee):
		ctl.sendError(c, "forbidden")
	}
}
