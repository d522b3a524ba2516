package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedHistory blocks every write until release is closed.
type gatedHistory struct {
	*MemoryStore
	release chan struct{}
}

func (g *gatedHistory) Create(ctx context.Context, rec core.CallRecord) error {
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.MemoryStore.Create(ctx, rec)
}

type failingHistory struct{ *MemoryStore }

func (f *failingHistory) MarkEnded(context.Context, domain.RoomID, domain.UserID, time.Duration) error {
	return errors.New("disk full")
}

func TestAsyncPreservesOrder(t *testing.T) {
	t.Parallel()
	mem := NewMemoryStore()
	a := NewAsync(mem, 16, time.Second, nil)
	ctx := context.Background()

	require.NoError(t, a.Create(ctx, core.CallRecord{RoomID: "r", CallerID: "a", CalleeID: "b", Type: domain.CallAudio}))
	require.NoError(t, a.MarkAccepted(ctx, "r"))
	require.NoError(t, a.MarkEnded(ctx, "r", "a", time.Second))
	require.NoError(t, a.Close(ctx))

	e, ok := mem.Get("r")
	require.True(t, ok)
	assert.Equal(t, StatusEnded, e.Status)
	assert.Equal(t, int64(1000), e.DurationMS)

	assert.ErrorIs(t, a.MarkRejected(ctx, "r"), ErrClosed)
	assert.NoError(t, a.Close(ctx))
}

func TestAsyncQueueFull(t *testing.T) {
	t.Parallel()
	g := &gatedHistory{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
	a := NewAsync(g, 1, time.Second, nil)
	ctx := context.Background()

	// The worker holds the first job, the queue holds the second.
	require.NoError(t, a.Create(ctx, core.CallRecord{RoomID: "r1"}))
	require.Eventually(t, func() bool { return len(a.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, a.Create(ctx, core.CallRecord{RoomID: "r2"}))
	assert.ErrorIs(t, a.Create(ctx, core.CallRecord{RoomID: "r3"}), ErrQueueFull)

	close(g.release)
	require.NoError(t, a.Close(ctx))
	_, ok := g.Get("r2")
	assert.True(t, ok)
	_, ok = g.Get("r3")
	assert.False(t, ok)
}

func TestAsyncReportsFailures(t *testing.T) {
	t.Parallel()
	var (
		mu  sync.Mutex
		ops []string
	)
	next := &failingHistory{MemoryStore: NewMemoryStore()}
	a := NewAsync(next, 4, time.Second, func(op string) {
		mu.Lock()
		ops = append(ops, op)
		mu.Unlock()
	})
	ctx := context.Background()

	require.NoError(t, a.Create(ctx, core.CallRecord{RoomID: "r"}))
	require.NoError(t, a.MarkAccepted(ctx, "missing"))
	require.NoError(t, a.MarkEnded(ctx, "r", "a", 0))
	require.NoError(t, a.Close(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"accept", "end"}, ops)
}

func TestAsyncCloseHonoursContext(t *testing.T) {
	t.Parallel()
	g := &gatedHistory{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
	a := NewAsync(g, 4, time.Minute, nil)
	require.NoError(t, a.Create(context.Background(), core.CallRecord{RoomID: "r1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, a.Close(ctx), context.DeadlineExceeded)

	close(g.release)
	assert.NoError(t, a.Close(context.Background()))
}
