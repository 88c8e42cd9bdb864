// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for relay invocations.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay outcome labels for RequestsTotal.
const (
	ResultExecuted     = "executed"
	ResultInsufficient = "insufficient_signatures"
	ResultExpired      = "expired"
	ResultReplayed     = "already_processed"
	ResultForwardFail  = "forward_failed"
	ResultInvalid      = "invalid_request"
	ResultError        = "error"
)

// Metrics holds metric instruments for the relay.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RegistryChanges   *prometheus.CounterVec
	Relayers          prometheus.Gauge
	Threshold         prometheus.Gauge
	ForwardLatency    prometheus.Histogram
	InvalidSignatures prometheus.Counter
}

// NewMetrics creates relay metric instruments registered with reg.
// Pass prometheus.DefaultRegisterer for process-wide metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Relay invocations by outcome.",
		}, []string{"result"}),
		RegistryChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_registry_changes_total",
			Help: "Relayer set mutations by operation.",
		}, []string{"op"}),
		Relayers: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_relayers",
			Help: "Number of registered relayers.",
		}),
		Threshold: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_threshold",
			Help: "Signatures currently required to relay.",
		}),
		ForwardLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_forward_latency_seconds",
			Help:    "Time spent forwarding authorized payloads.",
			Buckets: prometheus.DefBuckets,
		}),
		InvalidSignatures: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_invalid_signatures_total",
			Help: "Signatures skipped because they failed recovery.",
		}),
	}
}

// RecordRelay counts one relay invocation with the given result label.
func (m *Metrics) RecordRelay(result string) {
	m.RequestsTotal.WithLabelValues(result).Inc()
}

// RecordForward observes a forward duration.
func (m *Metrics) RecordForward(latencySeconds float64) {
	m.ForwardLatency.Observe(latencySeconds)
}

// RecordRegistry counts a registry mutation and updates the set gauges.
func (m *Metrics) RecordRegistry(op string, relayers, threshold int) {
	m.RegistryChanges.WithLabelValues(op).Inc()
	m.SetRegistry(relayers, threshold)
}

// SetRegistry updates the relayer count and threshold gauges.
func (m *Metrics) SetRegistry(relayers, threshold int) {
	m.Relayers.Set(float64(relayers))
	m.Threshold.Set(float64(threshold))
}
