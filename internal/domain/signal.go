package domain

import (
	"encoding/json"
	"errors"
)

var ErrInvalidSignalType = errors.New("invalid signal type")

type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "ice-candidate"
)

func (t SignalType) Valid() bool {
	switch t {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return true
	}
	return false
}

// SignalEnvelope is relayed between two peers as-is. Payload is whatever the
// client put there (SDP, ICE candidate); nothing on the server reads it.
type SignalEnvelope struct {
	Type       SignalType      `json:"-"`
	RoomID     RoomID          `json:"roomId"`
	FromUserID UserID          `json:"fromUserId"`
	ToUserID   UserID          `json:"toUserId"`
	Payload    json.RawMessage `json:"payload"`
}
