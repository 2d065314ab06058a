// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector name.
const Namespace = "wfassist"

// Retrieval and index metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval requests",
		},
		[]string{"status"}, // "ok" / "error"
	)

	RetrievalTopScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_top_score",
			Help:      "Cosine similarity of the best match per query",
			Buckets:   []float64{0, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	IndexDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "index_documents",
			Help:      "Number of examples in the published index",
		},
	)

	IndexVocabularySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "index_vocabulary_size",
			Help:      "Number of distinct terms in the published index",
		},
	)

	IndexReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "index_reloads_total",
			Help:      "Index rebuild attempts",
		},
		[]string{"status"},
	)
)

// Validation metrics.
var (
	ValidationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "validation_total",
			Help:      "Validated candidates by verdict",
		},
		[]string{"result"}, // "valid" / "invalid"
	)

	ValidationCoverage = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "validation_coverage",
			Help:      "Fraction of required fields present per candidate",
			Buckets:   []float64{0, 0.25, 0.5, 0.75, 0.9, 1},
		},
	)
)

// Completion metrics.
var (
	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "completion_requests_total",
			Help:      "Total number of completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	CompletionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "completion_request_duration_seconds",
			Help:      "Completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	CompletionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "completion_tokens_total",
			Help:      "Total completion tokens consumed",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "completion"
	)

	CompletionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "completion_errors_total",
			Help:      "Total completion errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	CompletionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "completion_cache_total",
			Help:      "Completion cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// Register registers the domain collectors with the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RetrievalRequestsTotal,
			RetrievalTopScore,
			IndexDocuments,
			IndexVocabularySize,
			IndexReloadsTotal,
			ValidationTotal,
			ValidationCoverage,
			CompletionRequestsTotal,
			CompletionRequestDuration,
			CompletionTokensTotal,
			CompletionErrorsTotal,
			CompletionCacheTotal,
			httpRequestDuration,
			httpRequestsTotal,
			httpInFlight,
		)
	})
}
