package runtime

import (
	"time"

	loggingpkg "github.com/sylin-org/relay/internal/runtime/logging"
)

// GoLiveInfo describes a completed go-live transition.
type GoLiveInfo struct {
	// Provider is the name of the selected provider.
	Provider string
	// Buffered is the number of messages held when the transition began.
	Buffered int
	// At is when the transition happened.
	At time.Time
}

// LifecycleHooks defines callbacks for lifecycle events.
// All hooks are optional - nil hooks are simply not called.
type LifecycleHooks struct {
	// OnPhaseChange is called on every phase transition.
	OnPhaseChange func(from, to Phase)

	// OnGoLive is called once, after the proxy flipped live and before the
	// buffer drain begins.
	OnGoLive func(info GoLiveInfo)

	// OnFailed is called once when every provider exhausted its attempts.
	// The process keeps running and buffering; this is the hook for alerting.
	OnFailed func(err error)

	// OnDrainError is called for each buffered message that failed to forward.
	OnDrainError func(env *Envelope, err error)

	// OnBindError is called for each handler that could not be bound.
	OnBindError func(messageType string, err error)
}

// Merge combines two LifecycleHooks, creating a new LifecycleHooks that calls
// both. The hooks from 'other' are called after the hooks from 'h'.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPhaseChange: chainPhaseHooks(h.OnPhaseChange, other.OnPhaseChange),
		OnGoLive:      chainGoLiveHooks(h.OnGoLive, other.OnGoLive),
		OnFailed:      chainErrHooks(h.OnFailed, other.OnFailed),
		OnDrainError:  chainDrainHooks(h.OnDrainError, other.OnDrainError),
		OnBindError:   chainBindHooks(h.OnBindError, other.OnBindError),
	}
}

func chainPhaseHooks(a, b func(Phase, Phase)) func(Phase, Phase) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(from, to Phase) {
		a(from, to)
		b(from, to)
	}
}

func chainGoLiveHooks(a, b func(GoLiveInfo)) func(GoLiveInfo) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(info GoLiveInfo) {
		a(info)
		b(info)
	}
}

func chainErrHooks(a, b func(error)) func(error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(err error) {
		a(err)
		b(err)
	}
}

func chainDrainHooks(a, b func(*Envelope, error)) func(*Envelope, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(env *Envelope, err error) {
		a(env, err)
		b(env, err)
	}
}

func chainBindHooks(a, b func(string, error)) func(string, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(messageType string, err error) {
		a(messageType, err)
		b(messageType, err)
	}
}

// LoggingHooks returns hooks that log every lifecycle event through the
// supplied logger. Merge them with application hooks for alerting.
func LoggingHooks(logger loggingpkg.ServiceLogger) LifecycleHooks {
	return LifecycleHooks{
		OnPhaseChange: func(from, to Phase) {
			logger.Info("Lifecycle phase changed", loggingpkg.LogFields{
				"from": from.String(),
				"to":   to.String(),
			})
		},
		OnGoLive: func(info GoLiveInfo) {
			logger.Info("Messaging is live", loggingpkg.LogFields{
				"provider": info.Provider,
				"buffered": info.Buffered,
			})
		},
		OnFailed: func(err error) {
			logger.Error("Provider selection failed, messaging stays buffered", err, nil)
		},
		OnDrainError: func(env *Envelope, err error) {
			logger.Error("Buffered message lost to forwarding failure", err, loggingpkg.LogFields{
				"message_type": env.MessageType,
				"message_id":   env.ID,
			})
		},
		OnBindError: func(messageType string, err error) {
			logger.Error("Consumer binding failed", err, loggingpkg.LogFields{
				"message_type": messageType,
			})
		},
	}
}
