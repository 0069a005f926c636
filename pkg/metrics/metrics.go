package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ingestion pipeline instrumentation
type Metrics struct {
	RunsTotal          prometheus.CounterVec
	RunDuration        prometheus.HistogramVec
	RunsInFlight       prometheus.Gauge
	ChunksWrittenTotal prometheus.CounterVec
	ChunkTextBytes     prometheus.HistogramVec
	PagesExtracted     prometheus.CounterVec
	SyncChunksTotal    prometheus.CounterVec
	MetadataPassTotal  prometheus.CounterVec
	QueueDepth         prometheus.Gauge
}

// New creates a metrics instance registered on the default registry
func New(namespace, subsystem string) *Metrics {
	return &Metrics{
		RunsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of ingestion runs by outcome",
			},
			[]string{"format", "outcome"},
		),

		RunDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of ingestion runs in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"format"},
		),

		RunsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_in_flight",
				Help:      "Number of ingestion runs currently executing",
			},
		),

		ChunksWrittenTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "chunks_written_total",
				Help:      "Total number of chunks embedded and uploaded to the search index",
			},
			[]string{"format"},
		),

		ChunkTextBytes: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "chunk_text_bytes",
				Help:      "Size of chunk text in bytes",
				Buckets:   prometheus.ExponentialBuckets(128, 2, 8),
			},
			[]string{"format"},
		),

		PagesExtracted: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pages_extracted_total",
				Help:      "Total number of pages returned by content extraction",
			},
			[]string{"format"},
		),

		SyncChunksTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sync_chunks_total",
				Help:      "Chunk metadata sync attempts by outcome",
			},
			[]string{"outcome"},
		),

		MetadataPassTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "metadata_pass_total",
				Help:      "Metadata extraction passes by outcome",
			},
			[]string{"outcome"},
		),

		QueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queue_depth",
				Help:      "Pending ingestion jobs in the queue",
			},
		),
	}
}
