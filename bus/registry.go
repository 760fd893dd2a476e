package bus

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

// Factory is the function signature for creating a provider from config.
// Each provider package should expose a Factory that can be registered.
type Factory func(cfg Config, priority int, logger watermill.LoggerAdapter) (Provider, error)

// Registry maintains a mapping of provider names to their factories.
// Provider packages register themselves using Register.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// DefaultRegistry is the global provider registry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a provider factory to the registry. The name should match the
// value used in the service configuration (e.g., "nats", "amqp").
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Build creates a provider using the registered factory for the given name.
func (r *Registry) Build(name string, cfg Config, priority int, logger watermill.LoggerAdapter) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %q (registered: %v)", name, r.Names())
	}

	return factory(cfg, priority, logger)
}

// Names returns the list of registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Has returns true if a provider is registered with the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Register adds a provider factory to the default registry.
func Register(name string, factory Factory) {
	DefaultRegistry.Register(name, factory)
}

// Build creates a provider using the default registry.
func Build(name string, cfg Config, priority int, logger watermill.LoggerAdapter) (Provider, error) {
	return DefaultRegistry.Build(name, cfg, priority, logger)
}
