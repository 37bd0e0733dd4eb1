// Package prometheus exposes pool activity as Prometheus metrics. The
// Observer in this package plugs into threadpool.WithObserver; TrackQueueDepth
// adds a scrape-time gauge over the transport's queue depth.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the registry the package-level helpers register into.
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer wraps DefaultRegistry with the service label.
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "threadpool"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds the pool's Prometheus metrics. All vectors carry a "pool"
// label so several pools can share one registry.
type Metrics struct {
	// Job flow
	JobsEnqueuedTotal *prometheus.CounterVec
	JobsFinishedTotal *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec

	// Worker lifecycle
	WorkersLive      *prometheus.GaugeVec
	WorkerExitsTotal *prometheus.CounterVec

	// Custom metrics registry
	registerer       prometheus.Registerer
	customCounters   map[string]*prometheus.CounterVec
	customGauges     map[string]*prometheus.GaugeVec
	customHistograms map[string]*prometheus.HistogramVec
	customMu         sync.RWMutex
}

// GetMetrics returns the shared metrics instance on DefaultRegisterer.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates and registers the pool metrics on registerer. A nil
// registerer falls back to DefaultRegisterer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		JobsEnqueuedTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadpool_jobs_enqueued_total",
				Help: "Jobs accepted by Execute",
			},
			[]string{"pool"},
		),
		JobsFinishedTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadpool_jobs_finished_total",
				Help: "Jobs that ran to completion",
			},
			[]string{"pool", "worker"},
		),
		JobDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "threadpool_job_duration_seconds",
				Help:    "Job execution time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pool", "worker"},
		),
		WorkersLive: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadpool_workers_live",
				Help: "Workers currently running",
			},
			[]string{"pool"},
		),
		WorkerExitsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadpool_worker_exits_total",
				Help: "Worker exits by reason",
			},
			[]string{"pool", "reason"}, // reason: terminate, abnormal
		),

		registerer:       registerer,
		customCounters:   make(map[string]*prometheus.CounterVec),
		customGauges:     make(map[string]*prometheus.GaugeVec),
		customHistograms: make(map[string]*prometheus.HistogramVec),
	}
}

// TrackQueueDepth registers a gauge that reports depth() at scrape time,
// labeled with the pool name. Typical wiring:
//
//	TrackQueueDepth(nil, pool.Name(), func() int { return pool.Stats().QueueDepth })
func TrackQueueDepth(registerer prometheus.Registerer, pool string, depth func() int) prometheus.GaugeFunc {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	return promauto.With(registerer).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "threadpool_queue_depth",
			Help:        "Undelivered messages in the pool's transport",
			ConstLabels: prometheus.Labels{"pool": pool},
		},
		func() float64 { return float64(depth()) },
	)
}

// Counter creates or returns a custom counter metric.
func (m *Metrics) Counter(name, help string, labels ...string) *prometheus.CounterVec {
	m.customMu.RLock()
	if counter, exists := m.customCounters[name]; exists {
		m.customMu.RUnlock()
		return counter
	}
	m.customMu.RUnlock()

	m.customMu.Lock()
	defer m.customMu.Unlock()

	// Double-check after acquiring write lock
	if counter, exists := m.customCounters[name]; exists {
		return counter
	}

	counter := promauto.With(m.registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	m.customCounters[name] = counter
	return counter
}

// Gauge creates or returns a custom gauge metric.
func (m *Metrics) Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	m.customMu.RLock()
	if gauge, exists := m.customGauges[name]; exists {
		m.customMu.RUnlock()
		return gauge
	}
	m.customMu.RUnlock()

	m.customMu.Lock()
	defer m.customMu.Unlock()

	// Double-check after acquiring write lock
	if gauge, exists := m.customGauges[name]; exists {
		return gauge
	}

	gauge := promauto.With(m.registerer).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	m.customGauges[name] = gauge
	return gauge
}

// Histogram creates or returns a custom histogram metric. Nil buckets use the
// Prometheus defaults.
func (m *Metrics) Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	m.customMu.RLock()
	if histogram, exists := m.customHistograms[name]; exists {
		m.customMu.RUnlock()
		return histogram
	}
	m.customMu.RUnlock()

	m.customMu.Lock()
	defer m.customMu.Unlock()

	// Double-check after acquiring write lock
	if histogram, exists := m.customHistograms[name]; exists {
		return histogram
	}

	opts := prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: buckets,
	}
	if buckets == nil {
		opts.Buckets = prometheus.DefBuckets
	}

	histogram := promauto.With(m.registerer).NewHistogramVec(opts, labels)
	m.customHistograms[name] = histogram
	return histogram
}

// Counter returns a custom counter on the shared metrics instance.
func Counter(name, help string, labels ...string) *prometheus.CounterVec {
	return GetMetrics().Counter(name, help, labels...)
}

// Gauge returns a custom gauge on the shared metrics instance.
func Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	return GetMetrics().Gauge(name, help, labels...)
}

// Histogram returns a custom histogram on the shared metrics instance.
func Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return GetMetrics().Histogram(name, help, buckets, labels...)
}
