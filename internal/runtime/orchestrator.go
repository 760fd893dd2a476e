package runtime

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/sylin-org/relay/bus"
	configpkg "github.com/sylin-org/relay/internal/runtime/config"
	errspkg "github.com/sylin-org/relay/internal/runtime/errors"
	loggingpkg "github.com/sylin-org/relay/internal/runtime/logging"
)

// Provider attempt outcome labels recorded in metrics.
const (
	attemptOutcomeProbeFailed   = "probe_failed"
	attemptOutcomeConnectFailed = "connect_failed"
	attemptOutcomeUnhealthy     = "unhealthy"
	attemptOutcomeSelected      = "selected"
)

// Orchestrator runs the one-shot go-live coordination: it selects a provider
// with retry and backoff, flips the proxy live, drains the buffer into the
// bus, and binds the registered consumers.
type Orchestrator struct {
	conf      *configpkg.Config
	logger    loggingpkg.ServiceLogger
	proxy     *Proxy
	buffer    *Buffer
	registry  *HandlerRegistry
	providers []bus.Provider
	hooks     LifecycleHooks
	metrics   *Metrics

	started  atomic.Bool
	done     chan struct{}
	selected atomic.Pointer[string]
}

// NewOrchestrator wires the coordinator over the shared lifecycle components.
func NewOrchestrator(
	conf *configpkg.Config,
	logger loggingpkg.ServiceLogger,
	proxy *Proxy,
	buffer *Buffer,
	registry *HandlerRegistry,
	providers []bus.Provider,
	hooks LifecycleHooks,
	metrics *Metrics,
) *Orchestrator {
	return &Orchestrator{
		conf:      conf,
		logger:    logger,
		proxy:     proxy,
		buffer:    buffer,
		registry:  registry,
		providers: providers,
		hooks:     hooks,
		metrics:   metrics,
		done:      make(chan struct{}),
	}
}

// Done is closed when the orchestration run has finished, whatever the
// outcome.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// SelectedProvider returns the name of the provider that went live, or "".
func (o *Orchestrator) SelectedProvider() string {
	if name := o.selected.Load(); name != nil {
		return *name
	}
	return ""
}

// Run executes the lifecycle once. It can never be re-run; a second call
// returns ErrAlreadyStarted. A cancelled context aborts the current backoff
// wait and leaves the system buffering.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return errspkg.ErrAlreadyStarted
	}
	defer close(o.done)

	o.transition(PhaseSelectingProvider)

	provider, liveBus := o.selectProvider(ctx)
	if liveBus == nil {
		if err := ctx.Err(); err != nil {
			o.logger.Info("Provider selection cancelled, staying buffered", nil)
			return err
		}
		o.transition(PhaseFailed)
		if o.hooks.OnFailed != nil {
			o.hooks.OnFailed(errspkg.ErrNoProvider)
		}
		return errspkg.ErrNoProvider
	}

	o.goLive(ctx, provider, liveBus)
	return nil
}

// selectProvider walks the providers highest priority first and returns the
// first one that yields a healthy bus. Each provider gets MaxAttempts rounds
// with a linear backoff between them.
func (o *Orchestrator) selectProvider(ctx context.Context) (bus.Provider, bus.Bus) {
	providers := slices.Clone(o.providers)
	bus.SortByPriority(providers)

	maxAttempts := o.conf.EffectiveMaxAttempts()
	baseDelay := o.conf.EffectiveBaseDelay()

	for _, provider := range providers {
		log := o.logger.With(loggingpkg.LogFields{"provider": provider.Name()})

		for attempt := 1; attempt <= maxAttempts; attempt++ {
			if ctx.Err() != nil {
				return nil, nil
			}

			if b := o.attempt(ctx, provider, attempt, log); b != nil {
				return provider, b
			}

			if attempt == maxAttempts {
				break
			}
			if !o.wait(ctx, time.Duration(attempt)*baseDelay) {
				return nil, nil
			}
		}

		log.Info("Provider exhausted its attempts, moving on", loggingpkg.LogFields{
			"attempts": maxAttempts,
		})
	}

	return nil, nil
}

func (o *Orchestrator) attempt(ctx context.Context, provider bus.Provider, attempt int, log loggingpkg.ServiceLogger) bus.Bus {
	if !provider.CanConnect(ctx) {
		o.metrics.IncProviderAttempt(provider.Name(), attemptOutcomeProbeFailed)
		log.Debug("Provider probe failed", loggingpkg.LogFields{"attempt": attempt})
		return nil
	}

	b, err := provider.Connect(ctx)
	if err != nil {
		o.metrics.IncProviderAttempt(provider.Name(), attemptOutcomeConnectFailed)
		log.Error("Provider connection failed", err, loggingpkg.LogFields{"attempt": attempt})
		return nil
	}

	if !b.Healthy(ctx) {
		o.metrics.IncProviderAttempt(provider.Name(), attemptOutcomeUnhealthy)
		log.Info("Provider bus unhealthy, discarding", loggingpkg.LogFields{"attempt": attempt})
		if closeErr := b.Close(); closeErr != nil {
			log.Error("Failed to close unhealthy bus", closeErr, nil)
		}
		return nil
	}

	o.metrics.IncProviderAttempt(provider.Name(), attemptOutcomeSelected)
	return b
}

// wait sleeps for the backoff delay. Returns false when the context was
// cancelled first.
func (o *Orchestrator) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// goLive performs the atomic transition: flip the proxy (bus first, then
// phase), drain the buffer, bind the consumers. Drain and binding run to
// completion even if the surrounding context is cancelled mid-flight.
func (o *Orchestrator) goLive(ctx context.Context, provider bus.Provider, liveBus bus.Bus) {
	name := provider.Name()
	o.selected.Store(&name)

	buffered := o.buffer.Len()
	info := GoLiveInfo{Provider: name, Buffered: buffered, At: time.Now()}

	from := o.proxy.Phase()
	o.proxy.GoLive(liveBus)
	o.metrics.SetPhase(PhaseLive)
	if o.hooks.OnPhaseChange != nil {
		o.hooks.OnPhaseChange(from, PhaseLive)
	}
	if o.hooks.OnGoLive != nil {
		o.hooks.OnGoLive(info)
	}

	finishCtx := context.WithoutCancel(ctx)

	drained := o.buffer.DrainTo(finishCtx, liveBus, DrainObserver{
		OnForwarded: func(env *Envelope) {
			o.metrics.ObserveDrained(env)
		},
		OnFailed: func(env *Envelope, err error) {
			o.metrics.IncDrainFailure()
			if o.hooks.OnDrainError != nil {
				o.hooks.OnDrainError(env, err)
			}
		},
	})
	o.metrics.SetBuffered(0)

	bound := o.registry.BindConsumers(finishCtx, liveBus, func(messageType string, err error) {
		if o.hooks.OnBindError != nil {
			o.hooks.OnBindError(messageType, err)
		}
	})
	o.metrics.IncConsumersBound(bound)

	o.logger.Info("Go-live complete", loggingpkg.LogFields{
		"provider": name,
		"drained":  drained,
		"buffered": buffered,
		"bound":    bound,
	})
}

// transition records an observability phase change before go-live.
func (o *Orchestrator) transition(to Phase) {
	from := o.proxy.Phase()
	o.proxy.setPhase(to)
	o.metrics.SetPhase(to)
	if o.hooks.OnPhaseChange != nil {
		o.hooks.OnPhaseChange(from, to)
	}
}
