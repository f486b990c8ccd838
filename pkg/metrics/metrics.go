package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/queue"
)

const namespace = "courier"

// Result label values of delivery attempts.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds every collector of the delivery engine.
// It implements notifications.Recorder and queue.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	notificationsCreated *prometheus.CounterVec
	deliveryAttempts     *prometheus.CounterVec
	deliveryDuration     *prometheus.HistogramVec
	queueTransitions     *prometheus.CounterVec
	fallbackDepth        prometheus.Gauge
	breakerState         *prometheus.GaugeVec
	breakerTransitions   *prometheus.CounterVec
	connections          prometheus.Gauge
}

// New registers the collectors on reg. A nil reg gets a fresh registry with
// the Go runtime and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		notificationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notifications recorded, by type.",
		}, []string{"type"}),
		deliveryAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "Channel delivery attempts, by channel, source and result.",
		}, []string{"channel", "source", "result"}),
		deliveryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Latency of channel delivery attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel", "source"}),
		queueTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_transitions_total",
			Help:      "Retry queue entries entering a status, by channel.",
		}, []string{"channel", "status"}),
		fallbackDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_fallback_depth",
			Help:      "Pending entries held in the in-memory fallback queue.",
		}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
		breakerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state changes, by target state.",
		}, []string{"name", "to"}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections",
			Help:      "Open websocket connections.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) NotificationCreated(t notifications.Type) {
	m.notificationsCreated.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) DeliveryAttempt(ch notifications.Channel, source string, err error, took time.Duration) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.deliveryAttempts.WithLabelValues(ch.String(), source, result).Inc()
	m.deliveryDuration.WithLabelValues(ch.String(), source).Observe(took.Seconds())
}

func (m *Metrics) EntryTransition(ch notifications.Channel, to queue.Status) {
	m.queueTransitions.WithLabelValues(ch.String(), string(to)).Inc()
}

func (m *Metrics) FallbackDepth(n int) {
	m.fallbackDepth.Set(float64(n))
}

// BreakerStateChange matches the state hooks of the email and push breakers.
func (m *Metrics) BreakerStateChange(name, _, to string) {
	m.breakerState.WithLabelValues(name).Set(breakerStateValue(to))
	m.breakerTransitions.WithLabelValues(name, to).Inc()
}

// Connections matches the realtime hub connection hook.
func (m *Metrics) Connections(total int) {
	m.connections.Set(float64(total))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	}
	return 0
}

var (
	_ notifications.Recorder = (*Metrics)(nil)
	_ queue.Recorder         = (*Metrics)(nil)
)
