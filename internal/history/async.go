package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull = errors.New("history queue full")
	ErrClosed    = errors.New("history closed")
)

type job struct {
	op     string
	roomID domain.RoomID
	fn     func(ctx context.Context) error
}

// Async turns a CallHistory into fire-and-forget. Writes go through one
// worker so the records of a room are applied in the order they were queued.
// A full queue drops the write and reports ErrQueueFull to the caller.
type Async struct {
	next    core.CallHistory
	timeout time.Duration
	onFail  func(op string)

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

// NewAsync starts the worker. onFail may be nil.
func NewAsync(next core.CallHistory, queueSize int, timeout time.Duration, onFail func(op string)) *Async {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		onFail:  onFail,
		jobs:    make(chan job, queueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for j := range a.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := j.fn(ctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("module", "history").Str("op", j.op).Str("room_id", string(j.roomID)).Msg("history write failed")
			a.fail(j.op)
		}
	}
}

func (a *Async) fail(op string) {
	if a.onFail != nil {
		a.onFail(op)
	}
}

func (a *Async) enqueue(j job) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) Create(_ context.Context, rec core.CallRecord) error {
	return a.enqueue(job{op: "create", roomID: rec.RoomID, fn: func(ctx context.Context) error {
		return a.next.Create(ctx, rec)
	}})
}

func (a *Async) MarkAccepted(_ context.Context, roomID domain.RoomID) error {
	return a.enqueue(job{op: "accept", roomID: roomID, fn: func(ctx context.Context) error {
		return a.next.MarkAccepted(ctx, roomID)
	}})
}

func (a *Async) MarkRejected(_ context.Context, roomID domain.RoomID) error {
	return a.enqueue(job{op: "reject", roomID: roomID, fn: func(ctx context.Context) error {
		return a.next.MarkRejected(ctx, roomID)
	}})
}

func (a *Async) MarkEnded(_ context.Context, roomID domain.RoomID, endedBy domain.UserID, duration time.Duration) error {
	return a.enqueue(job{op: "end", roomID: roomID, fn: func(ctx context.Context) error {
		return a.next.MarkEnded(ctx, roomID, endedBy, duration)
	}})
}

// Close stops accepting writes and waits for the queue to drain or ctx.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.jobs)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
