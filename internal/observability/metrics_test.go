package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncInvite()
		m.IncTransition("ENDED")
		m.IncDeliveryMiss("signal")
		m.IncStale("hangup")
		m.IncRelayed("offer")
		m.IncPresence("join")
		m.IncHistoryFailure("create")
		m.SetOnline(3)
		m.SetActiveCalls(1)
		m.IncBackpressure()
	})
}

func TestMetricsOnOwnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("calls", reg)
	m.IncStale("accept")
	m.IncStale("accept")
	m.SetOnline(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StaleOperations.WithLabelValues("accept")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.OnlineUsers))

	// A second registry takes the same names without a conflict.
	assert.NotPanics(t, func() { NewMetrics("calls", prometheus.NewRegistry()) })
}
