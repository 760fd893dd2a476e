package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/sylin-org/relay/bus"
	errspkg "github.com/sylin-org/relay/internal/runtime/errors"
	loggingpkg "github.com/sylin-org/relay/internal/runtime/logging"
)

// BindErrorFunc is invoked for each handler that could not be bound to the
// live bus.
type BindErrorFunc func(messageType string, err error)

// HandlerEntry pairs a message type with its handler. Entries are created
// during registration and bound to a consumer at go-live.
type HandlerEntry struct {
	MessageType  string
	Handler      bus.Handler
	RegisteredAt time.Time

	// claimed marks an entry whose binding has been attempted; guarded by the
	// registry mutex so a late registration and the go-live pass never bind
	// the same entry twice.
	claimed  bool
	consumer bus.Consumer
}

// Bound reports whether a live consumer exists for this entry.
func (e *HandlerEntry) Bound() bool { return e.consumer != nil }

// HandlerRegistry accumulates handler entries during startup. Registration is
// idempotent per message type: the first handler wins and duplicates are
// reported, never overwritten.
type HandlerRegistry struct {
	mu      sync.RWMutex
	entries map[string]*HandlerEntry
	order   []string

	logger loggingpkg.ServiceLogger
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry(logger loggingpkg.ServiceLogger) *HandlerRegistry {
	return &HandlerRegistry{
		entries: make(map[string]*HandlerEntry),
		logger:  logger,
	}
}

// Register adds an entry for the message type. Returns false when an entry
// already exists; the existing handler is kept.
func (r *HandlerRegistry) Register(messageType string, h bus.Handler) (bool, error) {
	if messageType == "" {
		return false, errspkg.ErrMessageTypeRequired
	}
	if h == nil {
		return false, errspkg.ErrHandlerRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[messageType]; exists {
		return false, nil
	}

	r.entries[messageType] = &HandlerEntry{
		MessageType:  messageType,
		Handler:      h,
		RegisteredAt: time.Now(),
	}
	r.order = append(r.order, messageType)
	return true, nil
}

// Entries returns a snapshot of all entries in registration order.
func (r *HandlerRegistry) Entries() []*HandlerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]*HandlerEntry, 0, len(r.order))
	for _, messageType := range r.order {
		snapshot = append(snapshot, r.entries[messageType])
	}
	return snapshot
}

// Types returns the registered message types in registration order.
func (r *HandlerRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, len(r.order))
	copy(types, r.order)
	return types
}

// BoundTypes returns the message types with a live consumer.
func (r *HandlerRegistry) BoundTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bound := make([]string, 0, len(r.order))
	for _, messageType := range r.order {
		if r.entries[messageType].Bound() {
			bound = append(bound, messageType)
		}
	}
	return bound
}

// Len returns the number of registered entries.
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// BindConsumers asks the bus for a consumer per unclaimed entry. Each binding
// is attempted independently; a failure is reported and skipped so one bad
// handler never blocks the rest. Returns the number of consumers bound.
func (r *HandlerRegistry) BindConsumers(ctx context.Context, dest bus.Bus, onError BindErrorFunc) int {
	bound := 0
	for _, messageType := range r.Types() {
		ok, err := r.Bind(ctx, dest, messageType)
		if err != nil {
			r.logger.Error("Failed to bind consumer", err, loggingpkg.LogFields{
				"message_type": messageType,
			})
			if onError != nil {
				onError(messageType, err)
			}
			continue
		}
		if ok {
			bound++
		}
	}
	return bound
}

// Bind attempts to bind a single entry's consumer on the bus. Binding an
// already-claimed or unknown entry is a no-op and reports false.
func (r *HandlerRegistry) Bind(ctx context.Context, dest bus.Bus, messageType string) (bool, error) {
	r.mu.Lock()
	entry, ok := r.entries[messageType]
	if !ok || entry.claimed {
		r.mu.Unlock()
		return false, nil
	}
	entry.claimed = true
	handler := entry.Handler
	r.mu.Unlock()

	consumer, err := dest.Subscribe(ctx, messageType, handler)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	entry.consumer = consumer
	r.mu.Unlock()
	return true, nil
}
