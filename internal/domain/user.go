// Package domain holds the identity, call and signaling types shared by every layer.
package domain

import (
	"errors"
	"strings"
)

const MaxUserIDLen = 64

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is the authenticated identity of a user. It is stable across
// reconnects, unlike a transport session id.
type UserID string

// ParseUserID trims and validates a raw identity coming from the boundary.
func ParseUserID(raw string) (UserID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrUserIDEmpty
	}
	if len(s) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(s), nil
}
