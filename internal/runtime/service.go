package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sylin-org/relay/bus"
	configpkg "github.com/sylin-org/relay/internal/runtime/config"
	errspkg "github.com/sylin-org/relay/internal/runtime/errors"
	jsoncodec "github.com/sylin-org/relay/internal/runtime/jsoncodec"
	loggingpkg "github.com/sylin-org/relay/internal/runtime/logging"
	metadatapkg "github.com/sylin-org/relay/internal/runtime/metadata"
)

// ServiceDependencies holds the optional collaborators that the Service can
// use. Leave fields nil/empty to use the defaults.
type ServiceDependencies struct {
	// Providers supplies explicit provider instances. When empty, providers
	// are built from Conf.Providers through the registry.
	Providers []bus.Provider

	// ProviderRegistry overrides the registry used to build providers from
	// config. Nil falls back to bus.DefaultRegistry.
	ProviderRegistry *bus.Registry

	// Hooks receive lifecycle events. Merged after the built-in logging hooks.
	Hooks LifecycleHooks

	// MetricsRegisterer overrides where lifecycle collectors register.
	MetricsRegisterer prometheus.Registerer

	// DisableLoggingHooks skips the built-in logging hooks when true.
	DisableLoggingHooks bool
}

// Service wires the buffer, handler registry, proxy, and orchestrator into
// the application-facing messaging API. Sends and registrations are valid
// from the moment the Service exists, before Start and before any transport
// is reachable.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	buffer       *Buffer
	registry     *HandlerRegistry
	proxy        *Proxy
	orchestrator *Orchestrator
	metrics      *Metrics

	started atomic.Bool
	runCtx  atomic.Pointer[context.Context]
}

// Snapshot is a point-in-time diagnostics view of the lifecycle.
type Snapshot struct {
	Phase           string    `json:"phase"`
	Provider        string    `json:"provider,omitempty"`
	Buffered        int       `json:"buffered"`
	Accepting       bool      `json:"accepting"`
	RegisteredTypes []string  `json:"registered_types"`
	BoundTypes      []string  `json:"bound_types"`
	CollectedAt     time.Time `json:"collected_at"`
}

// NewService constructs a Service for the supplied configuration. Register
// handlers and send messages on the returned Service at any point; call Start
// to begin provider selection. Panics on invalid configuration; use
// TryNewService to handle errors.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService is NewService with an error return instead of a panic.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	log.Info("Creating relay service", loggingpkg.LogFields{"config": conf})

	providers, err := resolveProviders(conf, log, deps)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, errspkg.ErrProviderRequired
	}

	metrics := NewMetrics(deps.MetricsRegisterer)
	if conf.MetricsEnabled {
		if err := metrics.Register(); err != nil {
			return nil, err
		}
	}

	hooks := deps.Hooks
	if !deps.DisableLoggingHooks {
		hooks = LoggingHooks(log).Merge(hooks)
	}

	buffer := NewBuffer(log)
	registry := NewHandlerRegistry(log)
	proxy := NewProxy(buffer, log, metrics)

	s := &Service{
		Conf:         conf,
		Logger:       log,
		buffer:       buffer,
		registry:     registry,
		proxy:        proxy,
		metrics:      metrics,
		orchestrator: NewOrchestrator(conf, log, proxy, buffer, registry, providers, hooks, metrics),
	}
	return s, nil
}

func resolveProviders(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) ([]bus.Provider, error) {
	if len(deps.Providers) > 0 {
		return deps.Providers, nil
	}

	registry := deps.ProviderRegistry
	if registry == nil {
		registry = bus.DefaultRegistry
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	providers := make([]bus.Provider, 0, len(conf.Providers))
	for _, spec := range conf.Providers {
		provider, err := registry.Build(spec.Name, conf, spec.Priority, wmLogger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

// Start launches the orchestrator in the background and returns immediately.
// The context governs provider selection; cancelling it aborts the current
// backoff wait and leaves the service buffering.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	if !s.started.CompareAndSwap(false, true) {
		return errspkg.ErrAlreadyStarted
	}

	s.runCtx.Store(&ctx)
	go func() {
		// Run logs and signals its own failures; the terminal Failed phase is
		// surfaced through hooks rather than an error return.
		_ = s.orchestrator.Run(ctx)
	}()
	return nil
}

// Done is closed once provider selection has finished, whatever the outcome.
func (s *Service) Done() <-chan struct{} {
	return s.orchestrator.Done()
}

// Phase returns the current lifecycle phase.
func (s *Service) Phase() Phase {
	return s.proxy.Phase()
}

// Send publishes the payload under the given message type. Before go-live the
// message is buffered; afterwards it goes straight to the bus. Send never
// fails because a transport is not ready yet.
func (s *Service) Send(ctx context.Context, messageType string, payload []byte, md metadatapkg.Metadata) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	return s.proxy.Send(ctx, messageType, payload, md)
}

// RegisterHandler records a handler for the message type. Registering the
// same type twice keeps the first handler and reports success. A handler
// registered after go-live is bound on the live bus immediately.
func (s *Service) RegisterHandler(messageType string, h bus.Handler) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}

	added, err := s.registry.Register(messageType, h)
	if err != nil {
		return err
	}
	if !added {
		s.Logger.Info("Handler already registered", loggingpkg.LogFields{
			"message_type": messageType,
		})
		return nil
	}

	if s.Phase() == PhaseLive {
		if liveBus := s.proxy.LiveBus(); liveBus != nil {
			if _, err := s.registry.Bind(s.runContext(), liveBus, messageType); err != nil {
				s.Logger.Error("Failed to bind late-registered handler", err, loggingpkg.LogFields{
					"message_type": messageType,
				})
			}
		}
	}
	return nil
}

func (s *Service) runContext() context.Context {
	if ctx := s.runCtx.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}

// Bus returns the live bus, or nil before go-live.
func (s *Service) Bus() bus.Bus {
	return s.proxy.LiveBus()
}

// Diagnostics returns a snapshot of the lifecycle state.
func (s *Service) Diagnostics() Snapshot {
	return Snapshot{
		Phase:           s.Phase().String(),
		Provider:        s.orchestrator.SelectedProvider(),
		Buffered:        s.buffer.Len(),
		Accepting:       s.buffer.Accepting(),
		RegisteredTypes: s.registry.Types(),
		BoundTypes:      s.registry.BoundTypes(),
		CollectedAt:     time.Now(),
	}
}

// DiagnosticsJSON renders the snapshot as indented JSON.
func (s *Service) DiagnosticsJSON() ([]byte, error) {
	return jsoncodec.MarshalIndent(s.Diagnostics(), "", "  ")
}
