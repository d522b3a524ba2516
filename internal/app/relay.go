package app

import (
	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/dkeye/Calls/internal/observability"
	"github.com/rs/zerolog/log"
)

// SignalingRouter forwards offers, answers and ICE candidates between peers.
// It holds no state and never looks inside the payload.
type SignalingRouter struct {
	presence *PresenceRegistry
	notifier core.Notifier
	metrics  *observability.Metrics
}

func NewSignalingRouter(presence *PresenceRegistry, notifier core.Notifier, metrics *observability.Metrics) *SignalingRouter {
	return &SignalingRouter{presence: presence, notifier: notifier, metrics: metrics}
}

// Relay delivers env to env.ToUserID. It reports whether the envelope was
// handed to a live connection; a miss is logged and counted only.
func (r *SignalingRouter) Relay(env domain.SignalEnvelope) bool {
	evType := core.SignalEventType(env.Type)
	logger := log.With().
		Str("module", "app.relay").
		Str("type", string(env.Type)).
		Str("room_id", string(env.RoomID)).
		Str("from", string(env.FromUserID)).
		Str("to", string(env.ToUserID)).
		Logger()

	if _, ok := r.presence.Resolve(env.ToUserID); !ok {
		logger.Debug().Msg("destination offline, dropping signal")
		r.metrics.IncDeliveryMiss("signal")
		return false
	}

	ev := core.SignalEvent{
		Type:       evType,
		RoomID:     env.RoomID,
		FromUserID: env.FromUserID,
		ToUserID:   env.ToUserID,
		Payload:    env.Payload,
	}
	if !r.notifier.Notify(env.ToUserID, ev) {
		logger.Debug().Msg("signal not delivered")
		r.metrics.IncDeliveryMiss("signal")
		return false
	}
	r.metrics.IncRelayed(string(env.Type))
	return true
}
