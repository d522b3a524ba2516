package core

import (
	"context"
	"time"

	"github.com/dkeye/Calls/internal/domain"
)

// Frame is a raw encoded message ready for the wire.
type Frame []byte

// SessionID identifies one physical transport connection.
type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Notifier is everything the call core knows about delivery.
// Notify reports whether the event was handed to a live connection.
type Notifier interface {
	Notify(uid domain.UserID, ev Event) bool
	Broadcast(ev Event)
}

// CallRecord is the audit entry created when a call is placed.
type CallRecord struct {
	RoomID    domain.RoomID
	CallerID  domain.UserID
	CalleeID  domain.UserID
	Type      domain.CallType
	CreatedAt time.Time
}

// CallHistory persists call records. It is an audit trail, not a dependency
// of the live call: callers ignore its errors after logging them.
type CallHistory interface {
	Create(ctx context.Context, rec CallRecord) error
	MarkAccepted(ctx context.Context, roomID domain.RoomID) error
	MarkRejected(ctx context.Context, roomID domain.RoomID) error
	MarkEnded(ctx context.Context, roomID domain.RoomID, endedBy domain.UserID, duration time.Duration) error
}

// Session is one live transport connection as seen by presence.
type Session struct {
	UserID          domain.UserID `json:"userId"`
	SessionID       SessionID     `json:"sessionId"`
	ConnectedAt     time.Time     `json:"connectedAt"`
	LastKeepAliveAt time.Time     `json:"lastKeepAliveAt"`
}
