package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylin-org/relay/bus"
)

func TestProviderName(t *testing.T) {
	assert.Equal(t, "nats", ProviderName)
}

func TestRegister(t *testing.T) {
	bus.DefaultRegistry = bus.NewRegistry()
	Register()
	assert.True(t, bus.DefaultRegistry.Has(ProviderName))
}

func TestNew(t *testing.T) {
	cfg := &mockConfig{natsURL: "nats://localhost:4222"}
	p, err := New(cfg, 100, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "nats", p.Name())
	assert.Equal(t, 100, p.Priority())
}

func TestCanConnect(t *testing.T) {
	t.Run("true when dial succeeds", func(t *testing.T) {
		originalDial := DialFactory
		defer func() { DialFactory = originalDial }()

		DialFactory = func(url string) (*natsgo.Conn, error) {
			assert.Equal(t, "nats://localhost:4222", url)
			return &natsgo.Conn{}, nil
		}

		p := &Provider{url: "nats://localhost:4222"}
		assert.True(t, p.CanConnect(context.Background()))
	})

	t.Run("false when dial fails", func(t *testing.T) {
		originalDial := DialFactory
		defer func() { DialFactory = originalDial }()

		DialFactory = func(url string) (*natsgo.Conn, error) {
			return nil, errors.New("connection refused")
		}

		p := &Provider{url: "nats://localhost:4222"}
		assert.False(t, p.CanConnect(context.Background()))
	})
}

func TestConnect(t *testing.T) {
	t.Run("builds bus with mocked factories", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		originalSubFactory := SubscriberFactory
		originalDial := DialFactory
		defer func() {
			PublisherFactory = originalPubFactory
			SubscriberFactory = originalSubFactory
			DialFactory = originalDial
		}()

		PublisherFactory = func(cfg wmnats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			assert.Equal(t, "nats://localhost:4222", cfg.URL)
			return &mockPublisher{}, nil
		}
		SubscriberFactory = func(cfg wmnats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			assert.Equal(t, "nats://localhost:4222", cfg.URL)
			return &mockSubscriber{}, nil
		}
		DialFactory = func(url string) (*natsgo.Conn, error) {
			return &natsgo.Conn{}, nil
		}

		p := &Provider{url: "nats://localhost:4222", logger: watermill.NopLogger{}}
		b, err := p.Connect(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, b)
	})

	t.Run("returns error when publisher factory fails", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		defer func() { PublisherFactory = originalPubFactory }()

		PublisherFactory = func(cfg wmnats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("publisher error")
		}

		p := &Provider{url: "nats://localhost:4222", logger: watermill.NopLogger{}}
		_, err := p.Connect(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "publisher error")
	})

	t.Run("returns error when subscriber factory fails", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		originalSubFactory := SubscriberFactory
		defer func() {
			PublisherFactory = originalPubFactory
			SubscriberFactory = originalSubFactory
		}()

		PublisherFactory = func(cfg wmnats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return &mockPublisher{}, nil
		}
		SubscriberFactory = func(cfg wmnats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("subscriber error")
		}

		p := &Provider{url: "nats://localhost:4222", logger: watermill.NopLogger{}}
		_, err := p.Connect(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "subscriber error")
	})

	t.Run("closes pub and sub when monitor dial fails", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		originalSubFactory := SubscriberFactory
		originalDial := DialFactory
		defer func() {
			PublisherFactory = originalPubFactory
			SubscriberFactory = originalSubFactory
			DialFactory = originalDial
		}()

		mockPub := &mockPublisher{}
		mockSub := &mockSubscriber{}
		PublisherFactory = func(cfg wmnats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return mockPub, nil
		}
		SubscriberFactory = func(cfg wmnats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			return mockSub, nil
		}
		DialFactory = func(url string) (*natsgo.Conn, error) {
			return nil, errors.New("monitor dial failed")
		}

		p := &Provider{url: "nats://localhost:4222", logger: watermill.NopLogger{}}
		_, err := p.Connect(context.Background())

		assert.Error(t, err)
		assert.True(t, mockPub.closed)
		assert.True(t, mockSub.closed)
	})
}

type mockConfig struct {
	natsURL string
}

func (m *mockConfig) GetNATSURL() string            { return m.natsURL }
func (m *mockConfig) GetAMQPURL() string            { return "" }
func (m *mockConfig) GetKafkaBrokers() []string     { return nil }
func (m *mockConfig) GetKafkaConsumerGroup() string { return "" }

type mockPublisher struct {
	closed bool
}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                                             { m.closed = true; return nil }

type mockSubscriber struct {
	closed bool
}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return nil, nil
}
func (m *mockSubscriber) Close() error { m.closed = true; return nil }
