package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for stackpilot. All methods are safe
// to call on a nil receiver.
type Metrics struct {
	registry               *prometheus.Registry
	operationsTotal        *prometheus.CounterVec
	operationDuration      *prometheus.HistogramVec
	pollsTotal             *prometheus.CounterVec
	stackEventsTotal       prometheus.Counter
	controlPlaneErrors     prometheus.Counter
	lastOperationTimestamp prometheus.Gauge
	lastPollTimestamp      prometheus.Gauge

	lastPoll atomic.Int64
	now      func() time.Time
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		now:      time.Now,
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackpilot_operations_total",
			Help: "Lifecycle operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stackpilot_operation_duration_seconds",
			Help:    "Duration of lifecycle operations in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}, []string{"operation"}),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackpilot_polls_total",
			Help: "Control plane polls by kind (stack, changeset).",
		}, []string{"kind"}),
		stackEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackpilot_stack_events_total",
			Help: "Stack events relayed to observers.",
		}),
		controlPlaneErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackpilot_control_plane_errors_total",
			Help: "Operations that ended with a control plane error.",
		}),
		lastOperationTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackpilot_last_operation_timestamp",
			Help: "Unix timestamp of the last completed operation.",
		}),
		lastPollTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackpilot_last_poll_timestamp",
			Help: "Unix timestamp of the last control plane poll.",
		}),
	}

	registry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.pollsTotal,
		m.stackEventsTotal,
		m.controlPlaneErrors,
		m.lastOperationTimestamp,
		m.lastPollTimestamp,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry in text format for the node exporter
// textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// ObserveOperation records a finished operation.
func (m *Metrics) ObserveOperation(operation, outcome string, duration time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.lastOperationTimestamp.Set(float64(finished.Unix()))
}

// IncPolls increments the poll counter for kind.
func (m *Metrics) IncPolls(kind string) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(kind).Inc()
	now := m.now()
	m.lastPoll.Store(now.UnixNano())
	m.lastPollTimestamp.Set(float64(now.Unix()))
}

// LastPoll returns the time of the most recent poll, or the zero time.
func (m *Metrics) LastPoll() time.Time {
	if m == nil {
		return time.Time{}
	}
	nanos := m.lastPoll.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// AddStackEvents counts relayed stack events.
func (m *Metrics) AddStackEvents(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.stackEventsTotal.Add(float64(n))
}

// IncControlPlaneErrors counts operations that failed on a control plane call.
func (m *Metrics) IncControlPlaneErrors() {
	if m == nil {
		return
	}
	m.controlPlaneErrors.Inc()
}
