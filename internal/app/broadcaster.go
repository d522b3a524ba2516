package app

import (
	"sync"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/observability"
	"github.com/rs/zerolog/log"
)

// PresenceBroadcaster publishes the online count on every presence change,
// to the transport via Notifier.Broadcast and to in-process subscribers.
// Delivery is at-most-once: a subscriber that is not keeping up misses events.
type PresenceBroadcaster struct {
	presence *PresenceRegistry
	notifier core.Notifier
	metrics  *observability.Metrics

	mu     sync.Mutex
	subs   map[int]chan int
	nextID int
}

// NewPresenceBroadcaster hooks itself into presence.
func NewPresenceBroadcaster(presence *PresenceRegistry, notifier core.Notifier, metrics *observability.Metrics) *PresenceBroadcaster {
	b := &PresenceBroadcaster{
		presence: presence,
		notifier: notifier,
		metrics:  metrics,
		subs:     make(map[int]chan int),
	}
	presence.OnChange(b.handle)
	return b
}

func (b *PresenceBroadcaster) handle(ev PresenceEvent) {
	b.metrics.IncPresence(string(ev.Kind))
	b.Publish()
}

// Publish sends the registry's current count to everyone.
func (b *PresenceBroadcaster) Publish() {
	n := b.presence.Count()
	b.metrics.SetOnline(n)

	if b.notifier != nil {
		b.notifier.Broadcast(core.PresenceCountEvent{Type: core.EventPresenceCount, OnlineCount: n})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- n:
		default:
			log.Debug().Str("module", "app.broadcaster").Int("sub", id).Msg("subscriber slow, count dropped")
		}
	}
}

// Subscribe returns a channel of online counts and a cancel func that
// closes it.
func (b *PresenceBroadcaster) Subscribe(buffer int) (<-chan int, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan int, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// OnlineCount is the query used by the rest of the platform.
func (b *PresenceBroadcaster) OnlineCount() int {
	return b.presence.Count()
}
