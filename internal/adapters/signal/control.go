package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/rs/zerolog/log"
)

var errForbidden = errors.New("identity does not match principal")

// identity resolves a user id claimed in a message against the connection's
// principal. An omitted claim means the principal.
func identity(c *WsSignalConn, claimed string) (domain.UserID, error) {
	if claimed == "" {
		return c.uid, nil
	}
	uid, err := domain.ParseUserID(claimed)
	if err != nil {
		return "", err
	}
	if uid != c.uid {
		return "", errForbidden
	}
	return uid, nil
}

func (ctl *SignalWSController) refuse(c *WsSignalConn, msgType string, err error) {
	code := "bad_payload"
	if errors.Is(err, errForbidden) {
		code = "forbidden"
	}
	log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Str("type", msgType).Msg("message rejected")
	ctl.sendError(c, code)
}

func (ctl *SignalWSController) handlePing(c *WsSignalConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(c, resp)
}

type presencePayload struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

func (ctl *SignalWSController) handleJoin(c *WsSignalConn, data []byte) {
	var p presencePayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.refuse(c, "join", err)
		return
	}
	if _, err := identity(c, p.UserID); err != nil {
		ctl.refuse(c, "join", err)
		return
	}
	// A retired socket may still have a join in flight; it must not take
	// presence back from the session that replaced it.
	if owner, ok := ctl.Orch.Presence.UserOf(c.sid); !ok || owner != c.uid {
		log.Debug().Str("module", "signal").Str("sid", string(c.sid)).Str("user", string(c.uid)).Msg("join on superseded session ignored")
		return
	}
	ctl.connect(c)

	resp := struct {
		Type        string         `json:"type"`
		SessionID   core.SessionID `json:"sessionId"`
		UserID      domain.UserID  `json:"userId"`
		OnlineCount int            `json:"onlineCount"`
	}{
		Type:        "joined",
		SessionID:   c.sid,
		UserID:      c.uid,
		OnlineCount: ctl.Orch.OnlineCount(),
	}
	ctl.sendJSON(c, resp)
}

// handleKeepAlive refreshes presence and answers with the current count, so
// a client that missed a broadcast converges on its next keepalive.
func (ctl *SignalWSController) handleKeepAlive(c *WsSignalConn, data []byte) {
	var p presencePayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.refuse(c, "keepalive", err)
		return
	}
	uid, err := identity(c, p.UserID)
	if err != nil {
		ctl.refuse(c, "keepalive", err)
		return
	}
	ctl.Orch.KeepAlive(uid, c.sid)
	ctl.sendJSON(c, core.PresenceCountEvent{Type: core.EventPresenceCount, OnlineCount: ctl.Orch.OnlineCount()})
}
