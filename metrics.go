package flowgraph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-block and per-buffer statistics for a running
// flowgraph, exposed as Prometheus collectors so a host process can scrape
// them alongside its own metrics.
type Metrics struct {
	WorkInvocations *prometheus.CounterVec
	ItemsProduced   *prometheus.CounterVec
	ItemsConsumed   *prometheus.CounterVec
	BlockErrors     *prometheus.CounterVec
	ParkSeconds     *prometheus.HistogramVec
	WorkSeconds     *prometheus.HistogramVec

	startTime time.Time
	stopTime  time.Time
}

// NewMetrics creates an unregistered set of flowgraph metrics. Register the
// result with a *prometheus.Registry via Collectors() before scraping.
func NewMetrics() *Metrics {
	return &Metrics{
		WorkInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "work_invocations_total",
			Help:      "Total Work() invocations per block.",
		}, []string{"block"}),
		ItemsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "items_produced_total",
			Help:      "Total stream items produced per block output port.",
		}, []string{"block", "port"}),
		ItemsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "items_consumed_total",
			Help:      "Total stream items consumed per block input port.",
		}, []string{"block", "port"}),
		BlockErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "block_errors_total",
			Help:      "Total errors returned from a block's Work().",
		}, []string{"block", "op"}),
		ParkSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowgraph",
			Name:      "park_seconds",
			Help:      "Time a block spent parked waiting for data/space.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 8),
		}, []string{"block"}),
		WorkSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowgraph",
			Name:      "work_seconds",
			Help:      "Time spent inside a single Work() invocation.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 8),
		}, []string{"block"}),
		startTime: time.Now(),
	}
}

// Collectors returns every prometheus.Collector this Metrics owns, for
// bulk registration: reg.MustRegister(m.Collectors()...).
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.WorkInvocations, m.ItemsProduced, m.ItemsConsumed,
		m.BlockErrors, m.ParkSeconds, m.WorkSeconds,
	}
}

// Stop records the flowgraph's stop time, used by Uptime.
func (m *Metrics) Stop() { m.stopTime = time.Now() }

// Uptime reports how long the flowgraph has been (or was) running.
func (m *Metrics) Uptime() time.Duration {
	if !m.stopTime.IsZero() {
		return m.stopTime.Sub(m.startTime)
	}
	return time.Since(m.startTime)
}

// Observer is the pluggable hook the harness/scheduler call into on every
// invocation; Metrics implements it via MetricsObserver, and callers that
// don't want Prometheus can supply NoOpObserver or their own.
type Observer interface {
	ObserveWork(block string, dur time.Duration, err error)
	ObserveProduced(block, port string, n uint64)
	ObserveConsumed(block, port string, n uint64)
	ObservePark(block string, dur time.Duration)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveWork(string, time.Duration, error) {}
func (NoOpObserver) ObserveProduced(string, string, uint64)   {}
func (NoOpObserver) ObserveConsumed(string, string, uint64)   {}
func (NoOpObserver) ObservePark(string, time.Duration)        {}

// MetricsObserver implements Observer on top of a Metrics instance.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver wraps m as an Observer.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveWork(block string, dur time.Duration, err error) {
	o.metrics.WorkInvocations.WithLabelValues(block).Inc()
	o.metrics.WorkSeconds.WithLabelValues(block).Observe(dur.Seconds())
	if err != nil {
		o.metrics.BlockErrors.WithLabelValues(block, "work").Inc()
	}
}

func (o *MetricsObserver) ObserveProduced(block, port string, n uint64) {
	o.metrics.ItemsProduced.WithLabelValues(block, port).Add(float64(n))
}

func (o *MetricsObserver) ObserveConsumed(block, port string, n uint64) {
	o.metrics.ItemsConsumed.WithLabelValues(block, port).Add(float64(n))
}

func (o *MetricsObserver) ObservePark(block string, dur time.Duration) {
	o.metrics.ParkSeconds.WithLabelValues(block).Observe(dur.Seconds())
}

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = NoOpObserver{}
)
