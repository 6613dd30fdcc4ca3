package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsSet holds the engine's Prometheus instruments, registered on
// the default registerer once per process
type metricsSet struct {
	executionsTotal *prometheus.CounterVec
	nodesExecuted   *prometheus.CounterVec
	nodesRetried    prometheus.Counter
	nodesInFlight   prometheus.Gauge
	nodeDuration    prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metrics     *metricsSet
)

func engineMetrics() *metricsSet {
	metricsOnce.Do(func() {
		metrics = &metricsSet{
			executionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "flowgraph",
				Subsystem: "engine",
				Name:      "executions_total",
				Help:      "Completed graph executions by terminal status.",
			}, []string{"status"}),
			nodesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "flowgraph",
				Subsystem: "engine",
				Name:      "nodes_executed_total",
				Help:      "Node task outcomes.",
			}, []string{"status"}),
			nodesRetried: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "flowgraph",
				Subsystem: "engine",
				Name:      "node_retries_total",
				Help:      "Node retry attempts.",
			}),
			nodesInFlight: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "flowgraph",
				Subsystem: "engine",
				Name:      "nodes_in_flight",
				Help:      "Node tasks currently holding a permit.",
			}),
			nodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "flowgraph",
				Subsystem: "engine",
				Name:      "node_duration_seconds",
				Help:      "Wall time of node task bodies including retries.",
				Buckets:   prometheus.DefBuckets,
			}),
		}
	})
	return metrics
}
