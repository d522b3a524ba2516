package app

import (
	"sync"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
)

// recordingNotifier delivers to users that presence can resolve.
type recordingNotifier struct {
	presence *PresenceRegistry

	mu        sync.Mutex
	delivered map[domain.UserID][]core.Event
	broadcast []core.Event
}

func newRecordingNotifier(p *PresenceRegistry) *recordingNotifier {
	return &recordingNotifier{presence: p, delivered: make(map[domain.UserID][]core.Event)}
}

func (n *recordingNotifier) Notify(uid domain.UserID, ev core.Event) bool {
	if _, ok := n.presence.Resolve(uid); !ok {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered[uid] = append(n.delivered[uid], ev)
	return true
}

func (n *recordingNotifier) Broadcast(ev core.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcast = append(n.broadcast, ev)
}

func (n *recordingNotifier) eventsFor(uid domain.UserID) []core.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Event(nil), n.delivered[uid]...)
}

func (n *recordingNotifier) broadcasts() []core.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Event(nil), n.broadcast...)
}
