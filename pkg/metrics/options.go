package metrics

import (
	"maps"

	"github.com/prometheus/client_golang/prometheus"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the buckets of the millisecond latency
// histograms (scoring, upstream, repository, worker, HTTP).
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithCustomLabels adds constant labels, such as the deployment region, to
// every metric. Later calls merge into earlier ones.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		maps.Copy(m.customLabels, labels)
	}
}

// WithMetricPrefix inserts prefix between the subsystem and the metric name,
// e.g. quotient_engine_<prefix>_cache_hits_total.
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.metricPrefix = prefix
		}
	}
}

// WithPrometheusRegistry registers the metrics on registry instead of the
// default registerer. The global manager uses its own registry so /healthz
// exposes only service metrics.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
