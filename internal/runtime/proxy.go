package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sylin-org/relay/bus"
	errspkg "github.com/sylin-org/relay/internal/runtime/errors"
	idspkg "github.com/sylin-org/relay/internal/runtime/ids"
	loggingpkg "github.com/sylin-org/relay/internal/runtime/logging"
	metadatapkg "github.com/sylin-org/relay/internal/runtime/metadata"
)

// busHolder wraps the bus interface so it can live in an atomic.Pointer.
type busHolder struct {
	bus bus.Bus
}

// Proxy is the single entry point application code sends through. It routes
// each send to the buffer or the live bus based on the current phase; the
// phase read and the dispatch form one atomic decision relative to go-live.
type Proxy struct {
	phase   atomic.Int32
	liveBus atomic.Pointer[busHolder]

	buffer  *Buffer
	logger  loggingpkg.ServiceLogger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewProxy creates a buffering proxy over the supplied buffer.
func NewProxy(buffer *Buffer, logger loggingpkg.ServiceLogger, metrics *Metrics) *Proxy {
	p := &Proxy{
		buffer:  buffer,
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("relay"),
	}
	p.phase.Store(int32(PhaseBuffering))
	return p
}

// Phase returns the current lifecycle phase.
func (p *Proxy) Phase() Phase {
	return Phase(p.phase.Load())
}

// setPhase records an observability-only transition. Routing changes only
// through GoLive.
func (p *Proxy) setPhase(to Phase) {
	p.phase.Store(int32(to))
}

// GoLive installs the bus reference and then flips the phase. The order
// matters: a send that observes the live phase must always find the bus.
func (p *Proxy) GoLive(b bus.Bus) {
	p.liveBus.Store(&busHolder{bus: b})
	p.phase.Store(int32(PhaseLive))
}

// LiveBus returns the installed bus, or nil before go-live.
func (p *Proxy) LiveBus() bus.Bus {
	holder := p.liveBus.Load()
	if holder == nil {
		return nil
	}
	return holder.bus
}

// Send routes the message to the buffer while buffering, or to the live bus
// once live. A send can never be silently dropped: a buffer rejection during
// the narrow go-live window is redirected to the already-installed bus.
func (p *Proxy) Send(ctx context.Context, messageType string, payload []byte, md metadatapkg.Metadata) error {
	if messageType == "" {
		return errspkg.ErrMessageTypeRequired
	}

	if p.Phase() == PhaseLive {
		p.metrics.IncSend(SendDestinationBus)
		return p.publish(ctx, p.LiveBus(), messageType, payload, md)
	}

	env := &Envelope{
		ID:          idspkg.CreateULID(),
		MessageType: messageType,
		Payload:     payload,
		Metadata:    md.Clone(),
		EnqueuedAt:  time.Now(),
	}

	err := p.buffer.Enqueue(env)
	if err == nil {
		p.metrics.IncSend(SendDestinationBuffer)
		p.metrics.SetBuffered(p.buffer.Len())
		return nil
	}

	if errors.Is(err, errspkg.ErrBufferClosed) {
		// The go-live transition closed the buffer between our phase read and
		// the enqueue. The bus was installed before the buffer closed, so the
		// message is redirected there instead of surfacing an error.
		live := p.LiveBus()
		if live == nil {
			p.logger.Error("Buffer rejected a send with no live bus installed", err, loggingpkg.LogFields{
				"message_type": messageType,
			})
			return err
		}
		p.metrics.IncSend(SendDestinationRedirect)
		return p.publish(ctx, live, messageType, payload, md)
	}

	return err
}

func (p *Proxy) publish(ctx context.Context, dest bus.Bus, messageType string, payload []byte, md metadatapkg.Metadata) error {
	ctx, span := p.tracer.Start(ctx, "relay.Send",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("message.type", messageType)),
	)
	defer span.End()

	return dest.Publish(ctx, messageType, payload, metadatapkg.ToBus(md))
}
