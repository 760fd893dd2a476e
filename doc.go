// Package relay lets application code send messages and register handlers
// from the moment the process starts, before any message-transport connection
// exists. Sends are buffered in memory and handler registrations accumulate;
// a background orchestrator probes the configured providers, connects the
// first healthy one, and flips the service live in a single atomic
// transition. The buffered backlog is drained into the bus exactly once, in
// order, and the registered handlers are bound as consumers. Callers never
// need to know whether a transport is ready: Send routes itself.
//
// A minimal setup involves filling Config with the providers to try (highest
// priority first), creating a Service, registering handlers, and calling
// Start; Send works before, during, and after the transition.
//
// # Providers
//
// Relay ships four providers out of the box:
//   - channel: In-memory Go channels for testing and local development
//   - nats: NATS Core messaging
//   - amqp: RabbitMQ durable queues
//   - kafka: Kafka with consumer groups
//
// Each provider lives in its own sub-package under bus/ and registers itself
// with the provider registry; custom backends implement bus.Provider and
// bus.Bus and can be supplied through ServiceDependencies.Providers.
//
// # Lifecycle
//
// The lifecycle is forward-only: Buffering to SelectingProvider to Live, or
// to Failed when every provider exhausts its connection attempts (5 rounds
// each with linearly growing backoff between them, 2s/4s/6s/8s by
// default). Failed is terminal but non-fatal: the service keeps accepting
// and buffering sends so the host application degrades instead of crashing.
// LifecycleHooks expose the transitions, the go-live event, and per-message
// drain or consumer-binding failures for alerting.
package relay
