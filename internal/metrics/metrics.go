// Package metrics exposes Prometheus instrumentation for the vault manager.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seedvault"

// Metrics holds the collectors of one manager
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	kdf        prometheus.Histogram
	signatures *prometheus.CounterVec
}

// New creates collectors registered on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Vault operations by name and result kind.",
		}, []string{"op", "result"}),
		kdf: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kdf_duration_seconds",
			Help:      "Time spent deriving keys from PINs.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signatures_total",
			Help:      "Signatures produced by mode and key source.",
		}, []string{"mode", "source"}),
	}
	m.registry.MustRegister(m.operations, m.kdf, m.signatures)
	return m
}

// Operation counts one finished operation
func (m *Metrics) Operation(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// KDF records one key derivation
func (m *Metrics) KDF(d time.Duration) {
	if m == nil {
		return
	}
	m.kdf.Observe(d.Seconds())
}

// Signature counts one signature; source is "pin" or "session"
func (m *Metrics) Signature(mode, source string) {
	if m == nil {
		return
	}
	m.signatures.WithLabelValues(mode, source).Inc()
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
