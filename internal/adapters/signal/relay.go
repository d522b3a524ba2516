package signal

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/dkeye/Calls/internal/domain"
)

var errMissingPayload = errors.New("payload is required")

var signalTypes = map[string]domain.SignalType{
	"signal.offer":  domain.SignalOffer,
	"signal.answer": domain.SignalAnswer,
	"signal.ice":    domain.SignalCandidate,
}

// handleRelay passes an offer/answer/candidate on without reading payload.
func (ctl *SignalWSController) handleRelay(c *WsSignalConn, msgType string, data []byte) {
	var p struct {
		Type       string          `json:"type"`
		RoomID     string          `json:"roomId"`
		FromUserID string          `json:"fromUserId"`
		ToUserID   string          `json:"toUserId"`
		Payload    json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.refuse(c, msgType, err)
		return
	}
	if p.RoomID == "" {
		ctl.refuse(c, msgType, errMissingRoom)
		return
	}
	if len(p.Payload) == 0 || bytes.Equal(p.Payload, []byte("null")) {
		ctl.refuse(c, msgType, errMissingPayload)
		return
	}
	from, err := identity(c, p.FromUserID)
	if err != nil {
		ctl.refuse(c, msgType, err)
		return
	}
	to, err := domain.ParseUserID(p.ToUserID)
	if err != nil {
		ctl.refuse(c, msgType, err)
		return
	}

	ctl.Orch.Relay(domain.SignalEnvelope{
		Type:       signalTypes[msgType],
		RoomID:     domain.RoomID(p.RoomID),
		FromUserID: from,
		ToUserID:   to,
		Payload:    p.Payload,
	})
}
