package runtime

import (
	"time"

	metadatapkg "github.com/sylin-org/relay/internal/runtime/metadata"
)

// Phase is the lifecycle state of the messaging coordinator. Transitions are
// forward-only: Buffering, then SelectingProvider, then Live or Failed. No
// phase is ever revisited.
type Phase int32

const (
	// PhaseBuffering is the initial phase: sends are held in memory and
	// handler registrations accumulate.
	PhaseBuffering Phase = iota

	// PhaseSelectingProvider is an observability sub-state of Buffering;
	// routing behaviour is unchanged while provider selection runs.
	PhaseSelectingProvider

	// PhaseLive is terminal success: sends go straight to the bus.
	PhaseLive

	// PhaseFailed is terminal failure: every provider exhausted its attempts.
	// The proxy keeps buffering indefinitely.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseBuffering:
		return "buffering"
	case PhaseSelectingProvider:
		return "selecting_provider"
	case PhaseLive:
		return "live"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Envelope is a message captured by the buffer before a transport is live.
// Envelopes are created on send, never mutated, and discarded after the drain
// hands them to the bus.
type Envelope struct {
	ID          string
	MessageType string
	Payload     []byte
	Metadata    metadatapkg.Metadata
	EnqueuedAt  time.Time
}
