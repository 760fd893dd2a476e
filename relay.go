package relay

import (
	buspkg "github.com/sylin-org/relay/bus"
	runtimepkg "github.com/sylin-org/relay/internal/runtime"
	configpkg "github.com/sylin-org/relay/internal/runtime/config"
	errspkg "github.com/sylin-org/relay/internal/runtime/errors"
	idspkg "github.com/sylin-org/relay/internal/runtime/ids"
	jsoncodec "github.com/sylin-org/relay/internal/runtime/jsoncodec"
	loggingpkg "github.com/sylin-org/relay/internal/runtime/logging"
	metadatapkg "github.com/sylin-org/relay/internal/runtime/metadata"
)

type (
	Config       = configpkg.Config
	ProviderSpec = configpkg.ProviderSpec

	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Snapshot            = runtimepkg.Snapshot

	Phase    = runtimepkg.Phase
	Envelope = runtimepkg.Envelope

	Buffer          = runtimepkg.Buffer
	HandlerRegistry = runtimepkg.HandlerRegistry
	HandlerEntry    = runtimepkg.HandlerEntry
	Proxy           = runtimepkg.Proxy
	Orchestrator    = runtimepkg.Orchestrator

	LifecycleHooks = runtimepkg.LifecycleHooks
	GoLiveInfo     = runtimepkg.GoLiveInfo
	DrainObserver  = runtimepkg.DrainObserver

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Bus abstraction (implement these to plug in a custom backend)
	Bus              = buspkg.Bus
	Provider         = buspkg.Provider
	Consumer         = buspkg.Consumer
	Handler          = buspkg.Handler
	BusMetadata      = buspkg.Metadata
	ProviderFactory  = buspkg.Factory
	ProviderRegistry = buspkg.Registry
)

// Lifecycle phases.
const (
	PhaseBuffering         = runtimepkg.PhaseBuffering
	PhaseSelectingProvider = runtimepkg.PhaseSelectingProvider
	PhaseLive              = runtimepkg.PhaseLive
	PhaseFailed            = runtimepkg.PhaseFailed
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig

	LoggingHooks = runtimepkg.LoggingHooks

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewNopServiceLogger       = loggingpkg.NewNopServiceLogger

	NewMetadata = metadatapkg.New

	// Provider registry (each bus sub-package registers itself here).
	// Import individual providers via: _ "github.com/sylin-org/relay/bus/channel"
	DefaultProviderRegistry = buspkg.DefaultRegistry
	RegisterProvider        = buspkg.Register
	BuildProvider           = buspkg.Build

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrBufferClosed        = errspkg.ErrBufferClosed
	ErrNoProvider          = errspkg.ErrNoProvider
	ErrAlreadyStarted      = errspkg.ErrAlreadyStarted
	ErrServiceRequired     = errspkg.ErrServiceRequired
	ErrHandlerRequired     = errspkg.ErrHandlerRequired
	ErrMessageTypeRequired = errspkg.ErrMessageTypeRequired
	ErrConfigRequired      = errspkg.ErrConfigRequired
	ErrLoggerRequired      = errspkg.ErrLoggerRequired
	ErrProviderRequired    = errspkg.ErrProviderRequired

	CreateULID = idspkg.CreateULID
)

// Metadata keys - use these constants for standard metadata fields.
const (
	MetadataKeyMessageType = buspkg.MetadataKeyMessageType
	MetadataKeyEnqueuedAt  = metadatapkg.KeyEnqueuedAt
	MetadataKeyBuffered    = metadatapkg.KeyBuffered
)

// Default provider selection tuning.
const (
	DefaultMaxAttempts = configpkg.DefaultMaxAttempts
	DefaultBaseDelay   = configpkg.DefaultBaseDelay
)
