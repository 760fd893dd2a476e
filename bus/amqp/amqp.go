// Package amqp provides a RabbitMQ/AMQP provider for relay.
package amqp

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	wmamqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/sylin-org/relay/bus"
)

// ProviderName is the name used to register this provider.
const ProviderName = "amqp"

// ConnectionFactory allows overriding the connection creation for testing.
var ConnectionFactory = func(cfg wmamqp.ConnectionConfig, logger watermill.LoggerAdapter) (*wmamqp.ConnectionWrapper, error) {
	return wmamqp.NewConnection(cfg, logger)
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg wmamqp.Config, logger watermill.LoggerAdapter, conn *wmamqp.ConnectionWrapper) (message.Publisher, error) {
	return wmamqp.NewPublisherWithConnection(cfg, logger, conn)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg wmamqp.Config, logger watermill.LoggerAdapter, conn *wmamqp.ConnectionWrapper) (message.Subscriber, error) {
	return wmamqp.NewSubscriberWithConnection(cfg, logger, conn)
}

// DialFactory allows overriding the raw AMQP dial used by the probe and the
// health monitor.
var DialFactory = func(url string) (*amqp091.Connection, error) {
	return amqp091.Dial(url)
}

// Register registers the AMQP provider with the default registry.
// This should be called from an init() function in an importing package,
// or explicitly before using the provider.
func Register() {
	bus.Register(ProviderName, New)
}

// New creates an AMQP provider from the config's AMQP URL.
func New(cfg bus.Config, priority int, logger watermill.LoggerAdapter) (bus.Provider, error) {
	return &Provider{url: cfg.GetAMQPURL(), priority: priority, logger: logger}, nil
}

// Provider probes a RabbitMQ broker and constructs buses over watermill-amqp
// durable pub/sub topology.
type Provider struct {
	url      string
	priority int
	logger   watermill.LoggerAdapter
}

func (p *Provider) Name() string  { return ProviderName }
func (p *Provider) Priority() int { return p.priority }

// CanConnect dials the broker and immediately closes the probe connection.
func (p *Provider) CanConnect(ctx context.Context) bool {
	conn, err := DialFactory(p.url)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Connect builds the AMQP bus. A dedicated monitor connection backs the
// bus's health reporting.
func (p *Provider) Connect(ctx context.Context) (bus.Bus, error) {
	amqpConfig := wmamqp.NewDurablePubSubConfig(
		p.url,
		wmamqp.GenerateQueueNameTopicName,
	)

	conn, err := ConnectionFactory(wmamqp.ConnectionConfig{
		AmqpURI:   p.url,
		TLSConfig: nil,
		Reconnect: wmamqp.DefaultReconnectConfig(),
	}, p.logger)
	if err != nil {
		return nil, err
	}

	publisher, err := PublisherFactory(amqpConfig, p.logger, conn)
	if err != nil {
		return nil, err
	}

	subscriber, err := SubscriberFactory(amqpConfig, p.logger, conn)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	monitor, err := DialFactory(p.url)
	if err != nil {
		publisher.Close()
		subscriber.Close()
		return nil, err
	}

	health := func(ctx context.Context) bool {
		return !monitor.IsClosed()
	}

	return &amqpBus{
		PubSubBus: bus.NewPubSubBus(ProviderName, publisher, subscriber, health, p.logger),
		monitor:   monitor,
	}, nil
}

type amqpBus struct {
	*bus.PubSubBus
	monitor *amqp091.Connection
}

func (b *amqpBus) Close() error {
	_ = b.monitor.Close()
	return b.PubSubBus.Close()
}
