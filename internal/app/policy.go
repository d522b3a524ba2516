package app

import "github.com/dkeye/Calls/internal/core"

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickSession
)

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(sid core.SessionID) BackpressureAction
}

// KickPolicy closes slow connections; the client reconnects and re-joins.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.SessionID) BackpressureAction { return KickSession }

// DropPolicy keeps the connection and loses the frame.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.SessionID) BackpressureAction { return DropFrame }

// PolicyByName maps a config value to a Policy; unknown names kick.
func PolicyByName(name string) Policy {
	if name == "drop" {
		return DropPolicy{}
	}
	return KickPolicy{}
}
