/*
Package runtime implements the adaptive messaging lifecycle for relay.

# Architecture Overview

Application code sends messages and registers handlers through the Service
from the moment the process starts, before any transport connection exists.
A background orchestrator selects a provider, flips the system live, drains
the buffered backlog into the bus, and binds the registered consumers.

# Package Structure

## Core Service (service.go)

The Service struct wires together the lifecycle components:
  - Buffer for pre-go-live sends
  - Handler registry for consumer bindings
  - Proxy routing sends by phase
  - Orchestrator driving the one-shot go-live transition
  - Prometheus lifecycle metrics

## Buffer (buffer.go)

In-memory FIFO holding area for messages sent while no transport is live.
Stops accepting atomically as the first step of the drain so no send can race
past the go-live transition.

## Handler Registry (handlers.go)

Accumulates handler entries keyed by message type during startup. Registration is
idempotent; consumers are bound independently at go-live, and a handler
registered after go-live is bound immediately.

## Proxy (proxy.go)

The single send entry point. Reads the phase atomically and dispatches to the
buffer or the live bus; a send rejected by a closing buffer is redirected to
the bus, never dropped.

## Orchestrator (orchestrator.go)

Runs exactly once: walks providers highest priority first with linear backoff
(2s, 4s, 6s, 8s, 10s by default), goes live on the first healthy bus, or ends
in the terminal Failed phase with the system still buffering.

## Hooks & Metrics (hooks.go, metrics.go)

LifecycleHooks expose phase changes, go-live, terminal failure, and per-item
drain/bind errors for logging, alerting, and custom metrics.

# Sub-packages

  - config/: Service configuration with validation
  - errors/: Sentinel errors
  - ids/: ULID generation for message IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - metadata/: Message metadata utilities

# Usage Example

	cfg := &config.Config{
		Providers: []config.ProviderSpec{
			{Name: "nats", Priority: 10},
			{Name: "channel", Priority: 1},
		},
		NATSURL: "nats://localhost:4222",
	}

	svc := runtime.NewService(cfg, logger, runtime.ServiceDependencies{})
	svc.RegisterHandler("order.created", handleOrder)
	svc.Send(ctx, "order.created", payload, nil) // buffered until live
	svc.Start(ctx)
*/
package runtime
