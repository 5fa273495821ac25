// Package metrics provides Prometheus metrics for the retrieval engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion
	DocumentsIndexed *prometheus.CounterVec
	IngestDuration   prometheus.Histogram
	EmbeddingBatches *prometheus.CounterVec

	// Retrieval
	SearchQueries *prometheus.CounterVec
	SearchResults prometheus.Histogram
	ChunksSkipped prometheus.Counter
	PricingBoosts prometheus.Counter
	ContextTokens prometheus.Histogram
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.DocumentsIndexed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docquery_documents_indexed_total",
			Help: "Documents processed by the batch orchestrator",
		},
		[]string{"status"},
	)

	m.IngestDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docquery_ingest_duration_seconds",
			Help:    "Per-document ingestion time in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	m.EmbeddingBatches = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docquery_embedding_batches_total",
			Help: "Embedding batches sent to the provider",
		},
		[]string{"result"},
	)

	m.SearchQueries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docquery_search_queries_total",
			Help: "Retrieval calls by variant",
		},
		[]string{"variant"},
	)

	m.SearchResults = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docquery_search_results",
			Help:    "Number of results returned per retrieval",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	m.ChunksSkipped = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docquery_chunks_skipped_total",
			Help: "Malformed chunks ignored during retrieval",
		},
	)

	m.PricingBoosts = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docquery_pricing_boosts_total",
			Help: "Chunks boosted by the product-pricing matcher",
		},
	)

	m.ContextTokens = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docquery_context_tokens",
			Help:    "Estimated tokens per assembled context",
			Buckets: prometheus.ExponentialBuckets(250, 2, 8),
		},
	)

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordDocument records one document outcome.
func (m *Metrics) RecordDocument(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsIndexed.WithLabelValues(status).Inc()
	m.IngestDuration.Observe(duration.Seconds())
}

// RecordEmbeddingBatch records one provider call.
func (m *Metrics) RecordEmbeddingBatch(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.EmbeddingBatches.WithLabelValues(result).Inc()
}

// RecordSearch records one retrieval call.
func (m *Metrics) RecordSearch(variant string, results, skipped int) {
	if m == nil {
		return
	}
	m.SearchQueries.WithLabelValues(variant).Inc()
	m.SearchResults.Observe(float64(results))
	m.ChunksSkipped.Add(float64(skipped))
}

// RecordBoosts records chunks boosted by the matcher.
func (m *Metrics) RecordBoosts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PricingBoosts.Add(float64(n))
}

// RecordContext records the size of an assembled context.
func (m *Metrics) RecordContext(tokens int) {
	if m == nil {
		return
	}
	m.ContextTokens.Observe(float64(tokens))
}
