package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type IndexerMetrics struct {
	indexed       *prometheus.CounterVec
	dropped       prometheus.Counter
	writeFailures prometheus.Counter
	batchSize     prometheus.Histogram
	height        prometheus.Gauge
}

var (
	indexerOnce     sync.Once
	indexerRegistry *IndexerMetrics
)

// Indexer returns the registry for the SQL event indexer.
func Indexer() *IndexerMetrics {
	indexerOnce.Do(func() {
		indexerRegistry = &IndexerMetrics{
			indexed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "orchai",
				Subsystem: "indexer",
				Name:      "events_indexed_total",
				Help:      "Events persisted by the indexer segmented by event type.",
			}, []string{"type"}),
			dropped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "orchai",
				Subsystem: "indexer",
				Name:      "events_dropped_total",
				Help:      "Events discarded because the indexer queue was full.",
			}),
			writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "orchai",
				Subsystem: "indexer",
				Name:      "write_failures_total",
				Help:      "Batches the indexer failed to persist.",
			}),
			batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "orchai",
				Subsystem: "indexer",
				Name:      "batch_size",
				Help:      "Number of events written per batch.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "orchai",
				Subsystem: "indexer",
				Name:      "last_indexed_height",
				Help:      "Highest block height persisted by the indexer.",
			}),
		}
		prometheus.MustRegister(
			indexerRegistry.indexed,
			indexerRegistry.dropped,
			indexerRegistry.writeFailures,
			indexerRegistry.batchSize,
			indexerRegistry.height,
		)
	})
	return indexerRegistry
}

func (m *IndexerMetrics) ObserveIndexed(kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.indexed.WithLabelValues(kind).Add(float64(count))
}

func (m *IndexerMetrics) IncDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *IndexerMetrics) IncWriteFailure() {
	if m == nil {
		return
	}
	m.writeFailures.Inc()
}

func (m *IndexerMetrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}

func (m *IndexerMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}
