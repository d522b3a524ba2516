package orch

import (
	"context"
	"time"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/rs/zerolog/log"
)

// ExpireRinging ends every room that has been CALLING for longer than
// RingTimeout and notifies both participants. It returns how many rooms
// were expired.
func (o *Orchestrator) ExpireRinging() int {
	if o.RingTimeout <= 0 {
		return 0
	}
	expired := o.Rooms.ExpireCalling(o.now().Add(-o.RingTimeout))
	if len(expired) == 0 {
		return 0
	}
	o.syncGauges()

	for _, room := range expired {
		o.Metrics.IncTransition(string(domain.StatusEnded))
		ev := core.CallEndedEvent{
			Type:   core.EventCallEnded,
			RoomID: room.ID,
			Reason: EndReasonTimeout,
		}
		o.notify(room.CallerID, ev)
		o.notify(room.CalleeID, ev)
		o.recordEnd(room, "", 0)
		log.Info().Str("module", "app.orch").Str("room_id", string(room.ID)).Msg("ringing timed out")
	}
	return len(expired)
}

// StartReaper runs ExpireRinging every interval until ctx is done.
func (o *Orchestrator) StartReaper(ctx context.Context, interval time.Duration) {
	if o.RingTimeout <= 0 || interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				o.ExpireRinging()
			}
		}
	}()
}
