// Package history persists call records for auditing. Nothing in the live
// signaling path waits on it.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
)

var ErrNotFound = errors.New("call record not found")

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusEnded    Status = "ended"
)

// Entry is one persisted call.
type Entry struct {
	RoomID     domain.RoomID   `json:"roomId"`
	CallerID   domain.UserID   `json:"callerId"`
	CalleeID   domain.UserID   `json:"calleeId"`
	Type       domain.CallType `json:"callType"`
	Status     Status          `json:"status"`
	EndedBy    domain.UserID   `json:"endedBy,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	AcceptedAt *time.Time      `json:"acceptedAt,omitempty"`
	EndedAt    *time.Time      `json:"endedAt,omitempty"`
	DurationMS int64           `json:"durationMs"`
}

// Store is a CallHistory that can also be queried.
type Store interface {
	core.CallHistory
	ListByUser(ctx context.Context, uid domain.UserID, limit int) ([]Entry, error)
	Close() error
}

const defaultListLimit = 50

func normLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
