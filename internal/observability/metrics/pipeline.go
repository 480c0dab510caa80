package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks index builds and question turns.
type PipelineMetrics struct {
	service string

	indexBuildsTotal   *prometheus.CounterVec
	indexBuildDuration *prometheus.HistogramVec
	indexChunks        *prometheus.HistogramVec
	ragTurnsTotal      *prometheus.CounterVec
	ragNoContextTotal  *prometheus.CounterVec
	ragRetrievedChunks *prometheus.HistogramVec
	ragDuration        *prometheus.HistogramVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	indexBuildsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "index",
			Name:      "builds_total",
			Help:      "Total vector index builds by status.",
		},
		[]string{"service", "status"},
	)
	indexBuildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "index",
			Name:      "build_duration_seconds",
			Help:      "Vector index build duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	indexChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "index",
			Name:      "chunks",
			Help:      "Distribution of chunks per successfully built index.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"service"},
	)
	ragTurnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "rag",
			Name:      "turns_total",
			Help:      "Total question turns by status.",
		},
		[]string{"service", "status"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total successful turns without retrieved sources.",
		},
		[]string{"service"},
	)
	ragRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per successful turn.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8},
		},
		[]string{"service"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Question turn duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)

	registerer.MustRegister(
		indexBuildsTotal,
		indexBuildDuration,
		indexChunks,
		ragTurnsTotal,
		ragNoContextTotal,
		ragRetrievedChunks,
		ragDuration,
	)

	return &PipelineMetrics{
		service:            service,
		indexBuildsTotal:   indexBuildsTotal,
		indexBuildDuration: indexBuildDuration,
		indexChunks:        indexChunks,
		ragTurnsTotal:      ragTurnsTotal,
		ragNoContextTotal:  ragNoContextTotal,
		ragRetrievedChunks: ragRetrievedChunks,
		ragDuration:        ragDuration,
	}
}

func (m *PipelineMetrics) ObserveIndexBuild(status string, chunks int, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.indexBuildsTotal.WithLabelValues(m.service, status).Inc()
	m.indexBuildDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if status == "success" {
		m.indexChunks.WithLabelValues(m.service).Observe(float64(chunks))
	}
}

func (m *PipelineMetrics) ObserveTurn(status string, sources int, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.ragTurnsTotal.WithLabelValues(m.service, status).Inc()
	m.ragDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if status != "success" {
		return
	}
	m.ragRetrievedChunks.WithLabelValues(m.service).Observe(float64(sources))
	if sources == 0 {
		m.ragNoContextTotal.WithLabelValues(m.service).Inc()
	}
}
