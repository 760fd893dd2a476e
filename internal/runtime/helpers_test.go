package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sylin-org/relay/bus"
	configpkg "github.com/sylin-org/relay/internal/runtime/config"
	loggingpkg "github.com/sylin-org/relay/internal/runtime/logging"
)

var errSubscribeRefused = errors.New("subscribe refused")

type sentMessage struct {
	MessageType string
	Payload     []byte
	Metadata    bus.Metadata
}

// fakeBus records publishes and subscriptions for assertions.
type fakeBus struct {
	mu        sync.Mutex
	sent      []sentMessage
	events    []string
	consumers map[string]bus.Handler

	publishErr   func(messageType string) error
	subscribeErr map[string]bool
	unhealthy    bool
	closed       bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{consumers: make(map[string]bus.Handler)}
}

func (b *fakeBus) Publish(ctx context.Context, messageType string, payload []byte, md bus.Metadata) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publishErr != nil {
		if err := b.publishErr(messageType); err != nil {
			return err
		}
	}
	b.sent = append(b.sent, sentMessage{MessageType: messageType, Payload: payload, Metadata: md})
	b.events = append(b.events, "publish:"+messageType)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, messageType string, h bus.Handler) (bus.Consumer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribeErr[messageType] {
		return nil, errSubscribeRefused
	}
	b.consumers[messageType] = h
	b.events = append(b.events, "subscribe:"+messageType)
	return &fakeConsumer{messageType: messageType}, nil
}

func (b *fakeBus) Healthy(ctx context.Context) bool { return !b.unhealthy }

func (b *fakeBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBus) Sent() []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	clone := make([]sentMessage, len(b.sent))
	copy(clone, b.sent)
	return clone
}

func (b *fakeBus) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	clone := make([]string, len(b.events))
	copy(clone, b.events)
	return clone
}

func (b *fakeBus) HasConsumer(messageType string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.consumers[messageType]
	return ok
}

type fakeConsumer struct {
	messageType string
}

func (c *fakeConsumer) MessageType() string { return c.messageType }
func (c *fakeConsumer) Close() error        { return nil }

// fakeProvider yields canned probe results and buses.
type fakeProvider struct {
	mu       sync.Mutex
	name     string
	priority int

	// probeResults is consumed one per CanConnect call; exhausted means true.
	probeResults []bool
	// buses is consumed one per Connect call; exhausted means connectErr
	// or the last bus again.
	buses      []bus.Bus
	connectErr error

	probeCalls   int
	connectCalls int
}

func (p *fakeProvider) Name() string  { return p.name }
func (p *fakeProvider) Priority() int { return p.priority }

func (p *fakeProvider) CanConnect(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.probeCalls++
	if len(p.probeResults) == 0 {
		return true
	}
	result := p.probeResults[0]
	p.probeResults = p.probeResults[1:]
	return result
}

func (p *fakeProvider) Connect(ctx context.Context) (bus.Bus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.connectCalls++
	if len(p.buses) == 0 {
		if p.connectErr != nil {
			return nil, p.connectErr
		}
		return nil, errors.New("no bus available")
	}
	b := p.buses[0]
	if len(p.buses) > 1 {
		p.buses = p.buses[1:]
	}
	return b, nil
}

func (p *fakeProvider) ProbeCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probeCalls
}

func healthyProvider(name string, priority int) (*fakeProvider, *fakeBus) {
	b := newFakeBus()
	return &fakeProvider{name: name, priority: priority, buses: []bus.Bus{b}}, b
}

func failingProvider(name string, priority int) *fakeProvider {
	return &fakeProvider{name: name, priority: priority, probeResults: make([]bool, 64)}
}

func testLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewNopServiceLogger()
}

func testConfig() *configpkg.Config {
	return &configpkg.Config{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond, // keeps backoff out of the test runtime
	}
}

func testMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func newTestOrchestrator(conf *configpkg.Config, providers []bus.Provider, hooks LifecycleHooks) (*Orchestrator, *Proxy, *Buffer, *HandlerRegistry) {
	log := testLogger()
	buffer := NewBuffer(log)
	registry := NewHandlerRegistry(log)
	metrics := testMetrics()
	proxy := NewProxy(buffer, log, metrics)
	orch := NewOrchestrator(conf, log, proxy, buffer, registry, providers, hooks, metrics)
	return orch, proxy, buffer, registry
}
