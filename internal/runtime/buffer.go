package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sylin-org/relay/bus"
	errspkg "github.com/sylin-org/relay/internal/runtime/errors"
	loggingpkg "github.com/sylin-org/relay/internal/runtime/logging"
	metadatapkg "github.com/sylin-org/relay/internal/runtime/metadata"
)

// DrainObserver receives per-message drain outcomes. Both callbacks are
// optional.
type DrainObserver struct {
	OnForwarded func(env *Envelope)
	OnFailed    func(env *Envelope, err error)
}

// Buffer is the in-memory holding area for messages sent before a transport
// is live. Many goroutines enqueue concurrently; exactly one drain empties it.
type Buffer struct {
	accepting atomic.Bool

	mu    sync.Mutex
	queue []*Envelope

	logger loggingpkg.ServiceLogger
}

// NewBuffer creates an accepting buffer.
func NewBuffer(logger loggingpkg.ServiceLogger) *Buffer {
	b := &Buffer{logger: logger}
	b.accepting.Store(true)
	return b
}

// Enqueue appends the envelope to the buffer. Once DrainTo has begun it
// returns ErrBufferClosed; the proxy redirects such sends to the live bus.
func (b *Buffer) Enqueue(env *Envelope) error {
	if !b.accepting.Load() {
		return errspkg.ErrBufferClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Re-check under the lock: the drain flips the flag and snapshots the
	// queue while holding it, so an enqueue can never slip in after the
	// snapshot was taken.
	if !b.accepting.Load() {
		return errspkg.ErrBufferClosed
	}

	b.queue = append(b.queue, env)
	return nil
}

// DrainTo stops the buffer accepting as its first action, then forwards every
// queued envelope to the bus in FIFO order, one at a time. A message that
// fails to forward is reported and skipped; it never blocks the rest.
// Returns the count successfully forwarded. A second drain forwards nothing.
func (b *Buffer) DrainTo(ctx context.Context, dest bus.Bus, obs DrainObserver) int {
	b.accepting.Store(false)

	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	forwarded := 0
	for _, env := range pending {
		md := env.Metadata.
			With(metadatapkg.KeyBuffered, "true").
			With(metadatapkg.KeyEnqueuedAt, env.EnqueuedAt.Format(time.RFC3339Nano))

		if err := dest.Publish(ctx, env.MessageType, env.Payload, metadatapkg.ToBus(md)); err != nil {
			b.logger.Error("Failed to forward buffered message", err, loggingpkg.LogFields{
				"message_type": env.MessageType,
				"message_id":   env.ID,
				"enqueued_at":  env.EnqueuedAt,
			})
			if obs.OnFailed != nil {
				obs.OnFailed(env, err)
			}
			continue
		}
		if obs.OnForwarded != nil {
			obs.OnForwarded(env)
		}
		forwarded++
	}

	return forwarded
}

// Len returns the number of buffered messages. Diagnostics only.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Accepting reports whether the buffer still takes new messages.
// Diagnostics only; callers must not use it to make routing decisions.
func (b *Buffer) Accepting() bool {
	return b.accepting.Load()
}
