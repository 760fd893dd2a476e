package runtime

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Send destination labels recorded by the proxy.
const (
	SendDestinationBuffer   = "buffer"
	SendDestinationBus      = "bus"
	SendDestinationRedirect = "redirect"
)

// Metrics tracks lifecycle statistics as Prometheus collectors.
type Metrics struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	registered bool

	phase            prometheus.Gauge
	buffered         prometheus.Gauge
	sendsTotal       *prometheus.CounterVec
	drainedTotal     prometheus.Counter
	drainFailures    prometheus.Counter
	providerAttempts *prometheus.CounterVec
	consumersBound   prometheus.Counter
	bufferWait       prometheus.Histogram
}

func newLifecycleOpts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace: "relay",
		Subsystem: "lifecycle",
		Name:      name,
		Help:      help,
	}
}

// NewMetrics creates the lifecycle collectors. A nil registerer falls back to
// the default Prometheus registerer; nothing is registered until Register.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer: registerer,
		phase: prometheus.NewGauge(prometheus.GaugeOpts(
			newLifecycleOpts("phase", "Current lifecycle phase (0=buffering, 1=selecting, 2=live, 3=failed)."))),
		buffered: prometheus.NewGauge(prometheus.GaugeOpts(
			newLifecycleOpts("buffered_messages", "Messages currently held in the buffer."))),
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts(
			newLifecycleOpts("sends_total", "Messages sent, by destination.")), []string{"destination"}),
		drainedTotal: prometheus.NewCounter(prometheus.CounterOpts(
			newLifecycleOpts("drained_total", "Buffered messages forwarded to the bus at go-live."))),
		drainFailures: prometheus.NewCounter(prometheus.CounterOpts(
			newLifecycleOpts("drain_failures_total", "Buffered messages that failed to forward."))),
		providerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts(
			newLifecycleOpts("provider_attempts_total", "Provider connection attempts, by provider and outcome.")), []string{"provider", "outcome"}),
		consumersBound: prometheus.NewCounter(prometheus.CounterOpts(
			newLifecycleOpts("consumers_bound_total", "Consumers bound on the live bus."))),
		bufferWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "lifecycle",
			Name:      "buffer_wait_seconds",
			Help:      "Time a message spent in the buffer before being forwarded.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
}

// Register registers the collectors exactly once.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.phase,
		m.buffered,
		m.sendsTotal,
		m.drainedTotal,
		m.drainFailures,
		m.providerAttempts,
		m.consumersBound,
		m.bufferWait,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			return err
		}
	}

	m.registered = true
	return nil
}

func (m *Metrics) SetPhase(p Phase) {
	m.phase.Set(float64(p))
}

func (m *Metrics) SetBuffered(n int) {
	m.buffered.Set(float64(n))
}

func (m *Metrics) IncSend(destination string) {
	m.sendsTotal.WithLabelValues(destination).Inc()
}

func (m *Metrics) ObserveDrained(env *Envelope) {
	m.drainedTotal.Inc()
	m.bufferWait.Observe(time.Since(env.EnqueuedAt).Seconds())
}

func (m *Metrics) IncDrainFailure() {
	m.drainFailures.Inc()
}

func (m *Metrics) IncProviderAttempt(provider, outcome string) {
	m.providerAttempts.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) IncConsumersBound(n int) {
	m.consumersBound.Add(float64(n))
}
