package orch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Calls/internal/app"
	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/dkeye/Calls/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeNotifier struct {
	presence *app.PresenceRegistry

	mu     sync.Mutex
	events map[domain.UserID][]core.Event
}

func (n *fakeNotifier) Notify(uid domain.UserID, ev core.Event) bool {
	if _, ok := n.presence.Resolve(uid); !ok {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[uid] = append(n.events[uid], ev)
	return true
}

func (n *fakeNotifier) Broadcast(core.Event) {}

func (n *fakeNotifier) eventsFor(uid domain.UserID) []core.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Event(nil), n.events[uid]...)
}

func (n *fakeNotifier) typesFor(uid domain.UserID) []string {
	var out []string
	for _, ev := range n.eventsFor(uid) {
		out = append(out, ev.EventType())
	}
	return out
}

type historyCall struct {
	Op       string
	RoomID   domain.RoomID
	EndedBy  domain.UserID
	Duration time.Duration
}

type fakeHistory struct {
	fail bool

	mu    sync.Mutex
	calls []historyCall
}

var errHistoryDown = errors.New("history down")

func (h *fakeHistory) add(c historyCall) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, c)
	if h.fail {
		return errHistoryDown
	}
	return nil
}

func (h *fakeHistory) Create(_ context.Context, rec core.CallRecord) error {
	return h.add(historyCall{Op: "create", RoomID: rec.RoomID})
}

func (h *fakeHistory) MarkAccepted(_ context.Context, id domain.RoomID) error {
	return h.add(historyCall{Op: "accept", RoomID: id})
}

func (h *fakeHistory) MarkRejected(_ context.Context, id domain.RoomID) error {
	return h.add(historyCall{Op: "reject", RoomID: id})
}

func (h *fakeHistory) MarkEnded(_ context.Context, id domain.RoomID, endedBy domain.UserID, d time.Duration) error {
	return h.add(historyCall{Op: "end", RoomID: id, EndedBy: endedBy, Duration: d})
}

func (h *fakeHistory) ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.calls))
	for _, c := range h.calls {
		out = append(out, c.Op)
	}
	return out
}

func (h *fakeHistory) last() historyCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[len(h.calls)-1]
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	orch     *Orchestrator
	notifier *fakeNotifier
	history  *fakeHistory
	metrics  *observability.Metrics
	clock    *clock
}

func newFixture() *fixture {
	presence := app.NewPresenceRegistry()
	n := &fakeNotifier{presence: presence, events: make(map[domain.UserID][]core.Event)}
	h := &fakeHistory{}
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	return &fixture{
		orch: &Orchestrator{
			Presence:    presence,
			Rooms:       app.NewCallRoomStore(),
			Router:      app.NewSignalingRouter(presence, n, m),
			Notifier:    n,
			History:     h,
			Metrics:     m,
			RingTimeout: time.Minute,
			Now:         c.Now,
		},
		notifier: n,
		history:  h,
		metrics:  m,
		clock:    c,
	}
}
