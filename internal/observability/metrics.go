package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	memoryWriteTotal    *prometheus.CounterVec
	memoryWriteDuration *prometheus.HistogramVec
	memoryWriteErrors   *prometheus.CounterVec

	searchDuration prometheus.Histogram
	searchResults  prometheus.Histogram

	relationshipOpsTotal *prometheus.CounterVec
	versionWritesTotal   prometheus.Counter
	mergeInputsTotal     prometheus.Counter

	sweepReclaimedTotal prometheus.Counter
	sweepDuration       prometheus.Histogram

	corpusSize prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			memoryWriteTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memory_write_total",
					Help: "Total memory write operations by op and status.",
				},
				[]string{"op", "status"},
			),
			memoryWriteDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "memory_write_duration_seconds",
					Help:    "Memory write duration in seconds by op.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			memoryWriteErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memory_write_errors_total",
					Help: "Total memory write errors by op.",
				},
				[]string{"op"},
			),
			searchDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "memory_search_duration_seconds",
					Help:    "Semantic search duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			searchResults: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "memory_search_results",
					Help:    "Result count per semantic search.",
					Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
				},
			),
			relationshipOpsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relationship_ops_total",
					Help: "Total relationship operations by op.",
				},
				[]string{"op"},
			),
			versionWritesTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "version_writes_total",
					Help: "Total version snapshots appended.",
				},
			),
			mergeInputsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "merge_inputs_total",
					Help: "Total memories consumed by merge operations.",
				},
			),
			sweepReclaimedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "sweep_reclaimed_total",
					Help: "Total expired memories reclaimed by sweeps.",
				},
			),
			sweepDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "sweep_duration_seconds",
					Help:    "Expiry sweep duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			corpusSize: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "memory_corpus_size",
					Help: "Total memories counted at the last stats read.",
				},
			),
		}

		prometheus.MustRegister(
			m.memoryWriteTotal,
			m.memoryWriteDuration,
			m.memoryWriteErrors,
			m.searchDuration,
			m.searchResults,
			m.relationshipOpsTotal,
			m.versionWritesTotal,
			m.mergeInputsTotal,
			m.sweepReclaimedTotal,
			m.sweepDuration,
			m.corpusSize,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordMemoryWrite(op string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.memoryWriteTotal.WithLabelValues(op, status).Inc()
	m.memoryWriteDuration.WithLabelValues(op).Observe(duration.Seconds())
	if !success {
		m.memoryWriteErrors.WithLabelValues(op).Inc()
	}
}

func RecordSearch(duration time.Duration, results int) {
	m := getMetrics()
	m.searchDuration.Observe(duration.Seconds())
	m.searchResults.Observe(float64(results))
}

func RecordRelationshipOp(op string) {
	getMetrics().relationshipOpsTotal.WithLabelValues(op).Inc()
}

func RecordVersionWrite() {
	getMetrics().versionWritesTotal.Inc()
}

func RecordMerge(inputs int) {
	getMetrics().mergeInputsTotal.Add(float64(inputs))
}

func RecordSweep(reclaimed int64, duration time.Duration) {
	m := getMetrics()
	m.sweepReclaimedTotal.Add(float64(reclaimed))
	m.sweepDuration.Observe(duration.Seconds())
}

func SetCorpusSize(total int64) {
	getMetrics().corpusSize.Set(float64(total))
}
