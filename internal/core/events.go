package core

import (
	"encoding/json"

	"github.com/dkeye/Calls/internal/domain"
)

// Outbound event types.
const (
	EventCallCreated    = "call.created"
	EventCallInvitation = "call.invitation"
	EventCallAccepted   = "call.accepted"
	EventCallRejected   = "call.rejected"
	EventCallEnded      = "call.ended"
	EventSignalOffer    = "signal.offer"
	EventSignalAnswer   = "signal.answer"
	EventSignalICE      = "signal.ice"
	EventPresenceCount  = "presence.count"
)

// Event is a typed outbound message. Implementations are JSON-encoded flat,
// with the type under "type".
type Event interface {
	EventType() string
}

type CallEvent struct {
	Type     string          `json:"type"`
	RoomID   domain.RoomID   `json:"roomId"`
	CallerID domain.UserID   `json:"callerId"`
	CalleeID domain.UserID   `json:"calleeId"`
	CallType domain.CallType `json:"callType,omitempty"`
}

func (e CallEvent) EventType() string { return e.Type }

type CallEndedEvent struct {
	Type       string        `json:"type"`
	RoomID     domain.RoomID `json:"roomId"`
	EndedBy    domain.UserID `json:"endedBy,omitempty"`
	DurationMS int64         `json:"durationMs"`
	Reason     string        `json:"reason"`
}

func (e CallEndedEvent) EventType() string { return e.Type }

// SignalEvent carries a relayed envelope; Payload is the sender's bytes.
type SignalEvent struct {
	Type       string          `json:"type"`
	RoomID     domain.RoomID   `json:"roomId"`
	FromUserID domain.UserID   `json:"fromUserId"`
	ToUserID   domain.UserID   `json:"toUserId"`
	Payload    json.RawMessage `json:"payload"`
}

func (e SignalEvent) EventType() string { return e.Type }

type PresenceCountEvent struct {
	Type        string `json:"type"`
	OnlineCount int    `json:"onlineCount"`
}

func (e PresenceCountEvent) EventType() string { return e.Type }

// SignalEventType maps an envelope type to its wire event name.
func SignalEventType(t domain.SignalType) string {
	switch t {
	case domain.SignalOffer:
		return EventSignalOffer
	case domain.SignalAnswer:
		return EventSignalAnswer
	default:
		return EventSignalICE
	}
}
