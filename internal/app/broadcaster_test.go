package app

import (
	"testing"

	"github.com/dkeye/Calls/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterPublishesLiveCount(t *testing.T) {
	t.Parallel()
	p := NewPresenceRegistry()
	n := newRecordingNotifier(p)
	b := NewPresenceBroadcaster(p, n, nil)

	ch, cancel := b.Subscribe(8)
	defer cancel()

	p.Join("a", "s1")
	assert.Equal(t, p.Count(), <-ch)
	p.Join("b", "s2")
	assert.Equal(t, p.Count(), <-ch)
	p.Leave("s1")
	assert.Equal(t, p.Count(), <-ch)
	assert.Equal(t, 1, b.OnlineCount())

	evs := n.broadcasts()
	require.Len(t, evs, 3)
	counts := make([]int, 0, len(evs))
	for _, ev := range evs {
		pc, ok := ev.(core.PresenceCountEvent)
		require.True(t, ok)
		assert.Equal(t, core.EventPresenceCount, pc.Type)
		counts = append(counts, pc.OnlineCount)
	}
	assert.Equal(t, []int{1, 2, 1}, counts)
}

func TestBroadcasterSlowSubscriberMissesEvents(t *testing.T) {
	t.Parallel()
	p := NewPresenceRegistry()
	b := NewPresenceBroadcaster(p, nil, nil)

	ch, cancel := b.Subscribe(1)
	p.Join("a", "s1")
	p.Join("b", "s2")

	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected buffered count %d", v)
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}
