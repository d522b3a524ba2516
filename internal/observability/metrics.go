package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the signaling core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Invites          prometheus.Counter
	CallTransitions  *prometheus.CounterVec
	DeliveryMisses   *prometheus.CounterVec
	StaleOperations  *prometheus.CounterVec
	SignalsRelayed   *prometheus.CounterVec
	PresenceChanges  *prometheus.CounterVec
	HistoryFailures  *prometheus.CounterVec
	OnlineUsers      prometheus.Gauge
	ActiveCalls      prometheus.Gauge
	BackpressureHits prometheus.Counter
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Invites: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invites_total",
			Help:      "Call invitations attempted.",
		}),
		CallTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_transitions_total",
			Help:      "Committed call room transitions by target status.",
		}, []string{"to"}),
		DeliveryMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_misses_total",
			Help:      "Notifications or signals whose destination was not reachable.",
		}, []string{"kind"}),
		StaleOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_operations_total",
			Help:      "Call operations referencing a room that no longer exists.",
		}, []string{"op"}),
		SignalsRelayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_relayed_total",
			Help:      "Signaling envelopes delivered by type.",
		}, []string{"type"}),
		PresenceChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_changes_total",
			Help:      "Presence registry changes by event.",
		}, []string{"event"}),
		HistoryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_failures_total",
			Help:      "Call history writes that failed or were dropped.",
		}, []string{"op"}),
		OnlineUsers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Users with a live signaling session.",
		}),
		ActiveCalls: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Call rooms currently in the store.",
		}),
		BackpressureHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_total",
			Help:      "Frames refused because a connection send buffer was full.",
		}),
	}
}

func (m *Metrics) IncInvite() {
	if m != nil {
		m.Invites.Inc()
	}
}

func (m *Metrics) IncTransition(to string) {
	if m != nil {
		m.CallTransitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) IncDeliveryMiss(kind string) {
	if m != nil {
		m.DeliveryMisses.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncStale(op string) {
	if m != nil {
		m.StaleOperations.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncRelayed(typ string) {
	if m != nil {
		m.SignalsRelayed.WithLabelValues(typ).Inc()
	}
}

func (m *Metrics) IncPresence(event string) {
	if m != nil {
		m.PresenceChanges.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) IncHistoryFailure(op string) {
	if m != nil {
		m.HistoryFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) SetOnline(n int) {
	if m != nil {
		m.OnlineUsers.Set(float64(n))
	}
}

func (m *Metrics) SetActiveCalls(n int) {
	if m != nil {
		m.ActiveCalls.Set(float64(n))
	}
}

func (m *Metrics) IncBackpressure() {
	if m != nil {
		m.BackpressureHits.Inc()
	}
}

func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
