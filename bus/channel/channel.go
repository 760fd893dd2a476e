// Package channel provides an in-memory provider for relay.
// It is always connectable and is useful for testing and local development.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/sylin-org/relay/bus"
)

// ProviderName is the name used to register this provider.
const ProviderName = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	bus.Register(ProviderName, New)
}

// New creates a channel provider. The config is unused; the provider needs no
// backend connection settings.
func New(_ bus.Config, priority int, logger watermill.LoggerAdapter) (bus.Provider, error) {
	return &Provider{priority: priority, logger: logger}, nil
}

// Provider constructs in-memory buses backed by Go channels.
type Provider struct {
	priority int
	logger   watermill.LoggerAdapter
}

func (p *Provider) Name() string  { return ProviderName }
func (p *Provider) Priority() int { return p.priority }

// CanConnect always succeeds; there is no backend to reach.
func (p *Provider) CanConnect(ctx context.Context) bool { return true }

// Connect builds the in-memory bus. Messages are persistent so subscribers
// bound after a drain still receive the drained backlog.
func (p *Provider) Connect(ctx context.Context) (bus.Bus, error) {
	pub, sub := Factory(gochannel.Config{Persistent: true}, p.logger)
	return bus.NewPubSubBus(ProviderName, pub, sub, nil, p.logger), nil
}
