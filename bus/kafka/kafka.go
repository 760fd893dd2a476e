// Package kafka provides a Kafka provider for relay.
package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	wmkafka "github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/sylin-org/relay/bus"
)

// ProviderName is the name used to register this provider.
const ProviderName = "kafka"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg wmkafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return wmkafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg wmkafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return wmkafka.NewSubscriber(cfg, logger)
}

// ClientFactory allows overriding the raw Kafka client used by the probe and
// the health monitor.
var ClientFactory = func(brokers []string) (sarama.Client, error) {
	return sarama.NewClient(brokers, sarama.NewConfig())
}

// Register registers the Kafka provider with the default registry.
// This should be called from an init() function in an importing package,
// or explicitly before using the provider.
func Register() {
	bus.Register(ProviderName, New)
}

// New creates a Kafka provider from the config's broker list.
func New(cfg bus.Config, priority int, logger watermill.LoggerAdapter) (bus.Provider, error) {
	return &Provider{
		brokers:       cfg.GetKafkaBrokers(),
		consumerGroup: cfg.GetKafkaConsumerGroup(),
		priority:      priority,
		logger:        logger,
	}, nil
}

// Provider probes Kafka brokers and constructs buses over watermill-kafka.
type Provider struct {
	brokers       []string
	consumerGroup string
	priority      int
	logger        watermill.LoggerAdapter
}

func (p *Provider) Name() string  { return ProviderName }
func (p *Provider) Priority() int { return p.priority }

// CanConnect opens a metadata client against the brokers and closes it again.
func (p *Provider) CanConnect(ctx context.Context) bool {
	client, err := ClientFactory(p.brokers)
	if err != nil {
		return false
	}
	_ = client.Close()
	return true
}

// Connect builds the Kafka bus. A dedicated metadata client backs the bus's
// health reporting.
func (p *Provider) Connect(ctx context.Context) (bus.Bus, error) {
	publisher, err := PublisherFactory(
		wmkafka.PublisherConfig{
			Brokers:   p.brokers,
			Marshaler: wmkafka.DefaultMarshaler{},
		},
		p.logger,
	)
	if err != nil {
		return nil, err
	}

	subscriber, err := SubscriberFactory(
		wmkafka.SubscriberConfig{
			Brokers:       p.brokers,
			Unmarshaler:   wmkafka.DefaultMarshaler{},
			ConsumerGroup: p.consumerGroup,
		},
		p.logger,
	)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	monitor, err := ClientFactory(p.brokers)
	if err != nil {
		publisher.Close()
		subscriber.Close()
		return nil, err
	}

	health := func(ctx context.Context) bool {
		return monitor.RefreshMetadata() == nil
	}

	return &kafkaBus{
		PubSubBus: bus.NewPubSubBus(ProviderName, publisher, subscriber, health, p.logger),
		monitor:   monitor,
	}, nil
}

type kafkaBus struct {
	*bus.PubSubBus
	monitor sarama.Client
}

func (b *kafkaBus) Close() error {
	_ = b.monitor.Close()
	return b.PubSubBus.Close()
}
