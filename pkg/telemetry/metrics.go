package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

// Render results used as label values.
const (
	ResultOK     = "ok"
	ResultError  = "error"
	ResultResync = "resync"
	ResultClosed = "closed"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "delphi").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "delphi",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the reconciliation metrics.
type Metrics struct {
	rendersTotal   *prometheus.CounterVec
	renderDuration prometheus.Histogram
	opsApplied     *prometheus.CounterVec
	patchFailures  *prometheus.CounterVec
	activeSurfaces prometheus.Gauge
	resyncsTotal   prometheus.Counter
	teardownsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics. It panics if the metrics are
// already registered on the chosen registry, like promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total number of renders by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Render duration in seconds, diff and patch included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		opsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "ops_applied_total",
			Help:        "Total number of edit ops applied to hosts",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		patchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patch_failures_total",
			Help:        "Total number of edit ops that failed on the host",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		activeSurfaces: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_surfaces",
			Help:        "Number of open surfaces",
			ConstLabels: config.ConstLabels,
		}),

		resyncsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resyncs_total",
			Help:        "Total number of full resyncs after a failed render",
			ConstLabels: config.ConstLabels,
		}),

		teardownsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "teardowns_total",
			Help:        "Total number of teardowns by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),
	}
}

// ObserveRender records one render attempt.
func (m *Metrics) ObserveRender(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.rendersTotal.WithLabelValues(result).Inc()
	m.renderDuration.Observe(d.Seconds())
}

// ObserveScript records the outcome of applying a script. applied is the
// number of leading ops that succeeded; when failed is true the op at index
// applied is counted as a failure.
func (m *Metrics) ObserveScript(script dom.Script, applied int, failed bool) {
	if m == nil {
		return
	}
	for _, op := range script[:applied] {
		m.opsApplied.WithLabelValues(op.Type.String()).Inc()
	}
	if failed && applied < len(script) {
		m.patchFailures.WithLabelValues(script[applied].Type.String()).Inc()
	}
}

// ObserveResync records a full resync.
func (m *Metrics) ObserveResync() {
	if m == nil {
		return
	}
	m.resyncsTotal.Inc()
}

// ObserveTeardown records a teardown.
func (m *Metrics) ObserveTeardown(result string) {
	if m == nil {
		return
	}
	m.teardownsTotal.WithLabelValues(result).Inc()
}

// SurfaceOpened increments the active surface gauge.
func (m *Metrics) SurfaceOpened() {
	if m == nil {
		return
	}
	m.activeSurfaces.Inc()
}

// SurfaceClosed decrements the active surface gauge.
func (m *Metrics) SurfaceClosed() {
	if m == nil {
		return
	}
	m.activeSurfaces.Dec()
}
