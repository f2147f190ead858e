// Package telemetry wires Prometheus instrumentation across the
// orchestration layer (SPEC_FULL.md §B): cache hit rate, rate-gate
// rejections, worker-pool queue depth, and batch-job throughput.
// Grounded on luxfi-consensus's api/metrics package — the same
// Registerer/Registry split over prometheus.Registerer/Gatherer, and
// the same "construct every metric up front, Must-register once"
// shape as its Metrics struct.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "idxr"

// Metrics is the fixed set of counters/gauges the engine exposes.
// Unlike luxfi-consensus's per-chain dynamic registration, this
// engine's metric surface is static: one Metrics value per process.
type Metrics struct {
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	RateLimited    *prometheus.CounterVec
	PoolQueueDepth prometheus.Gauge
	PoolActive     prometheus.Gauge
	BatchProcessed *prometheus.CounterVec
	BatchFailed    *prometheus.CounterVec
	ResolveLatency prometheus.Histogram
}

// New constructs and registers every metric against reg. Passing a
// fresh prometheus.NewRegistry() (as luxfi-consensus's NewRegistry
// does) keeps test instantiation independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache lookups that returned a live entry.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache lookups that missed or found an expired entry.",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate gate, by scope.",
		}, []string{"scope"}),
		PoolQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_queue_depth",
			Help:      "Current depth of the worker pool's priority queue.",
		}),
		PoolActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_active_workers",
			Help:      "Worker pool goroutines currently executing a task.",
		}),
		BatchProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_records_processed_total",
			Help:      "Batch records processed, by job type.",
		}, []string{"job_type"}),
		BatchFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_records_failed_total",
			Help:      "Batch records that failed processing, by job type.",
		}, []string{"job_type"}),
		ResolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_latency_ms",
			Help:      "Resolver.Resolve wall-clock time in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}),
	}

	reg.MustRegister(
		m.CacheHits, m.CacheMisses, m.RateLimited,
		m.PoolQueueDepth, m.PoolActive,
		m.BatchProcessed, m.BatchFailed, m.ResolveLatency,
	)
	return m
}

// ObservePoolStats copies a pool.Stats-shaped snapshot into the gauges;
// taken as plain values rather than importing internal/pool, so
// telemetry has no dependency on the packages it instruments.
func (m *Metrics) ObservePoolStats(queueDepth int, active int64) {
	m.PoolQueueDepth.Set(float64(queueDepth))
	m.PoolActive.Set(float64(active))
}
