package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayDeliversPayloadVerbatim(t *testing.T) {
	t.Parallel()
	p := NewPresenceRegistry()
	n := newRecordingNotifier(p)
	r := NewSignalingRouter(p, n, nil)
	p.Join("b", "sb")

	payload := json.RawMessage(`{"sdp":"v=0\r\no=- 1 2 IN IP4 127.0.0.1","weird":[1,{"x":null}]}`)
	ok := r.Relay(domain.SignalEnvelope{
		Type:       domain.SignalOffer,
		RoomID:     "room",
		FromUserID: "a",
		ToUserID:   "b",
		Payload:    payload,
	})
	require.True(t, ok)

	evs := n.eventsFor("b")
	require.Len(t, evs, 1)
	ev, ok := evs[0].(core.SignalEvent)
	require.True(t, ok)
	assert.Equal(t, core.EventSignalOffer, ev.Type)
	assert.Equal(t, domain.UserID("a"), ev.FromUserID)
	assert.Equal(t, []byte(payload), []byte(ev.Payload))
}

func TestRelayToOfflineUserIsSilent(t *testing.T) {
	t.Parallel()
	p := NewPresenceRegistry()
	n := newRecordingNotifier(p)
	r := NewSignalingRouter(p, n, nil)

	rooms := NewCallRoomStore()
	require.NoError(t, rooms.Create(domain.CallRoom{ID: "room", CallerID: "a", CalleeID: "b", CreatedAt: time.Now()}))

	assert.NotPanics(t, func() {
		ok := r.Relay(domain.SignalEnvelope{Type: domain.SignalCandidate, RoomID: "room", FromUserID: "a", ToUserID: "b", Payload: json.RawMessage(`{}`)})
		assert.False(t, ok)
	})
	assert.Empty(t, n.eventsFor("b"))

	room, ok := rooms.Get("room")
	require.True(t, ok)
	assert.Equal(t, domain.StatusCalling, room.Status)
}

func TestSignalEventTypes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, core.EventSignalOffer, core.SignalEventType(domain.SignalOffer))
	assert.Equal(t, core.EventSignalAnswer, core.SignalEventType(domain.SignalAnswer))
	assert.Equal(t, core.EventSignalICE, core.SignalEventType(domain.SignalCandidate))
}
