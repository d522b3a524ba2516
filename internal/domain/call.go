package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidCallType = errors.New("invalid call type")

type RoomID string

type CallType string

const (
	CallAudio CallType = "AUDIO"
	CallVideo CallType = "VIDEO"
)

// ParseCallType accepts "audio"/"video" in any case.
func ParseCallType(raw string) (CallType, error) {
	switch CallType(strings.ToUpper(strings.TrimSpace(raw))) {
	case CallAudio:
		return CallAudio, nil
	case CallVideo:
		return CallVideo, nil
	}
	return "", ErrInvalidCallType
}

type CallStatus string

const (
	StatusCalling  CallStatus = "CALLING"
	StatusAccepted CallStatus = "ACCEPTED"
	StatusRejected CallStatus = "REJECTED"
	StatusEnded    CallStatus = "ENDED"
)

// Terminal reports whether a room in this status must leave the store.
func (s CallStatus) Terminal() bool {
	return s == StatusRejected || s == StatusEnded
}

// CanTransition encodes the room state machine:
//
//	CALLING  -> ACCEPTED | REJECTED | ENDED
//	ACCEPTED -> ENDED
func (s CallStatus) CanTransition(to CallStatus) bool {
	switch s {
	case StatusCalling:
		return to == StatusAccepted || to == StatusRejected || to == StatusEnded
	case StatusAccepted:
		return to == StatusEnded
	}
	return false
}

// CallRoom is one call attempt between exactly two users.
type CallRoom struct {
	ID         RoomID     `json:"roomId"`
	CallerID   UserID     `json:"callerId"`
	CalleeID   UserID     `json:"calleeId"`
	Type       CallType   `json:"callType"`
	Status     CallStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	AcceptedAt time.Time  `json:"acceptedAt,omitzero"`
}

// IsParticipant reports whether uid is the caller or the callee.
func (r *CallRoom) IsParticipant(uid UserID) bool {
	return uid == r.CallerID || uid == r.CalleeID
}

// Counterpart returns the participant that is not uid.
func (r *CallRoom) Counterpart(uid UserID) UserID {
	if uid == r.CallerID {
		return r.CalleeID
	}
	return r.CallerID
}

// NewRoomID builds "<lo>:<hi>:<uuidv7>" from the sorted pair, so ids of one
// pair sort together and by creation time while staying unique.
func NewRoomID(a, b UserID) RoomID {
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return RoomID(string(lo) + ":" + string(hi) + ":" + u.String())
}
