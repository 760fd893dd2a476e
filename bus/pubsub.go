package bus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/sylin-org/relay/internal/runtime/ids"
)

// Standard metadata keys stamped by the PubSubBus on every published message.
const (
	MetadataKeyMessageType = "relay_message_type"
)

// HealthFunc reports whether the backend connection behind a bus is usable.
type HealthFunc func(ctx context.Context) bool

// PubSubBus adapts a Watermill publisher/subscriber pair to the Bus interface.
// Provider packages construct one of these around their backend's pub/sub.
type PubSubBus struct {
	name   string
	pub    message.Publisher
	sub    message.Subscriber
	health HealthFunc
	logger watermill.LoggerAdapter
}

// NewPubSubBus wraps the supplied publisher and subscriber. A nil health
// function means the bus always reports healthy.
func NewPubSubBus(name string, pub message.Publisher, sub message.Subscriber, health HealthFunc, logger watermill.LoggerAdapter) *PubSubBus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &PubSubBus{
		name:   name,
		pub:    pub,
		sub:    sub,
		health: health,
		logger: logger,
	}
}

// Name returns the backend name this bus was built from.
func (b *PubSubBus) Name() string { return b.name }

// Publish wraps the payload in a Watermill message and sends it to the topic
// named after the message type.
func (b *PubSubBus) Publish(ctx context.Context, messageType string, payload []byte, md Metadata) error {
	msg := message.NewMessage(ids.CreateULID(), payload)
	for k, v := range md {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(MetadataKeyMessageType, messageType)
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return b.pub.Publish(messageType, msg)
}

// Subscribe binds the handler to the message type's topic. Delivery runs on a
// background goroutine until the consumer or the subscription context closes.
func (b *PubSubBus) Subscribe(ctx context.Context, messageType string, h Handler) (Consumer, error) {
	subCtx, cancel := context.WithCancel(ctx)

	msgs, err := b.sub.Subscribe(subCtx, messageType)
	if err != nil {
		cancel()
		return nil, err
	}

	c := &pubSubConsumer{messageType: messageType, cancel: cancel}
	go b.consume(messageType, msgs, h)
	return c, nil
}

func (b *PubSubBus) consume(messageType string, msgs <-chan *message.Message, h Handler) {
	for msg := range msgs {
		md := make(Metadata, len(msg.Metadata))
		for k, v := range msg.Metadata {
			md[k] = v
		}

		if err := h(msg.Context(), msg.Payload, md); err != nil {
			b.logger.Error("Handler failed, nacking message", err, watermill.LogFields{
				"message_type": messageType,
				"message_uuid": msg.UUID,
			})
			msg.Nack()
			continue
		}
		msg.Ack()
	}
}

// Healthy reports the backend's health, or true when no health probe was set.
func (b *PubSubBus) Healthy(ctx context.Context) bool {
	if b.health == nil {
		return true
	}
	return b.health(ctx)
}

// Close closes the publisher and subscriber, terminating all consumers.
func (b *PubSubBus) Close() error {
	pubErr := b.pub.Close()
	subErr := b.sub.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}

type pubSubConsumer struct {
	messageType string
	cancel      context.CancelFunc
}

func (c *pubSubConsumer) MessageType() string { return c.messageType }

func (c *pubSubConsumer) Close() error {
	c.cancel()
	return nil
}
