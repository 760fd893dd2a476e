// Package bus defines the transport abstraction used by the relay lifecycle:
// a Provider that can probe for and construct a live Bus, and the Bus itself.
// Each backend (channel, nats, amqp, kafka) lives in its own sub-package and
// registers itself with the provider registry.
package bus

import (
	"context"
	"sort"
)

// Metadata carries the string headers attached to a published message.
type Metadata map[string]string

// Handler processes a single delivered message. Returning an error nacks the
// message so the backend can redeliver it.
type Handler func(ctx context.Context, payload []byte, md Metadata) error

// Consumer is a live binding between a message type and a handler.
type Consumer interface {
	MessageType() string
	Close() error
}

// Bus is the live transport obtained from a provider. Its lifetime is the
// remaining lifetime of the process; there is no reconnect path.
type Bus interface {
	// Publish sends a single message. The payload is opaque to the bus.
	Publish(ctx context.Context, messageType string, payload []byte, md Metadata) error

	// Subscribe binds a handler to a message type and starts delivery.
	Subscribe(ctx context.Context, messageType string, h Handler) (Consumer, error)

	// Healthy reports whether the underlying connection is usable.
	Healthy(ctx context.Context) bool

	Close() error
}

// Provider is a pluggable strategy for obtaining a Bus. CanConnect must be a
// side-effect-free probe; Connect is only called after a successful probe.
type Provider interface {
	Name() string
	Priority() int
	CanConnect(ctx context.Context) bool
	Connect(ctx context.Context) (Bus, error)
}

// Config provides the configuration values needed by providers. The interface
// keeps provider packages decoupled from the full config package; each reads
// only the keys relevant to it.
type Config interface {
	// NATS
	GetNATSURL() string

	// AMQP (RabbitMQ)
	GetAMQPURL() string

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaConsumerGroup() string
}

// SortByPriority orders providers highest priority first. The sort is stable
// so providers with equal priority keep their declaration order.
func SortByPriority(providers []Provider) {
	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].Priority() > providers[j].Priority()
	})
}
