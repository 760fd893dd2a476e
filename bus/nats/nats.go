// Package nats provides a NATS Core provider for relay.
package nats

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/sylin-org/relay/bus"
)

// ProviderName is the name used to register this provider.
const ProviderName = "nats"

// probeTimeout bounds the connection probe dial.
const probeTimeout = 2 * time.Second

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg wmnats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return wmnats.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg wmnats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return wmnats.NewSubscriber(cfg, logger)
}

// DialFactory allows overriding the raw NATS dial used by the probe and the
// health monitor.
var DialFactory = func(url string) (*natsgo.Conn, error) {
	return natsgo.Connect(url, natsgo.Timeout(probeTimeout))
}

// Register registers the NATS provider with the default registry.
// This should be called from an init() function in an importing package,
// or explicitly before using the provider.
func Register() {
	bus.Register(ProviderName, New)
}

// New creates a NATS provider from the config's NATS URL.
func New(cfg bus.Config, priority int, logger watermill.LoggerAdapter) (bus.Provider, error) {
	return &Provider{url: cfg.GetNATSURL(), priority: priority, logger: logger}, nil
}

// Provider probes a NATS server and constructs buses over watermill-nats.
type Provider struct {
	url      string
	priority int
	logger   watermill.LoggerAdapter
}

func (p *Provider) Name() string  { return ProviderName }
func (p *Provider) Priority() int { return p.priority }

// CanConnect dials the server and immediately closes the probe connection.
func (p *Provider) CanConnect(ctx context.Context) bool {
	conn, err := DialFactory(p.url)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Connect builds the NATS bus. A dedicated monitor connection backs the
// bus's health reporting.
func (p *Provider) Connect(ctx context.Context) (bus.Bus, error) {
	marshaler := &wmnats.NATSMarshaler{}

	publisher, err := PublisherFactory(
		wmnats.PublisherConfig{
			URL:       p.url,
			Marshaler: marshaler,
		},
		p.logger,
	)
	if err != nil {
		return nil, err
	}

	subscriber, err := SubscriberFactory(
		wmnats.SubscriberConfig{
			URL:         p.url,
			Unmarshaler: marshaler,
		},
		p.logger,
	)
	if err != nil {
		return nil, err
	}

	monitor, err := DialFactory(p.url)
	if err != nil {
		publisher.Close()
		subscriber.Close()
		return nil, err
	}

	health := func(ctx context.Context) bool {
		return monitor.IsConnected()
	}

	return &natsBus{
		PubSubBus: bus.NewPubSubBus(ProviderName, publisher, subscriber, health, p.logger),
		monitor:   monitor,
	}, nil
}

type natsBus struct {
	*bus.PubSubBus
	monitor *natsgo.Conn
}

func (b *natsBus) Close() error {
	b.monitor.Close()
	return b.PubSubBus.Close()
}
