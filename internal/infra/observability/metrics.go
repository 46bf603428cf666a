package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	transactionsCreated *prometheus.CounterVec
	messagesConsumed    *prometheus.CounterVec
	messagesPublished   *prometheus.CounterVec
	publishErrors       *prometheus.CounterVec
	ocrItems            *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spendsphere_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		transactionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsphere_transactions_created_total",
				Help: "Total ledger transactions created, by type.",
			},
			[]string{"type"},
		),
		messagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsphere_messages_consumed_total",
				Help: "Total broker messages consumed, by queue and outcome.",
			},
			[]string{"queue", "outcome"},
		),
		messagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsphere_messages_published_total",
				Help: "Total broker messages published, by queue.",
			},
			[]string{"queue"},
		),
		publishErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsphere_publish_errors_total",
				Help: "Total broker publish failures, by queue.",
			},
			[]string{"queue"},
		),
		ocrItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsphere_ocr_items_total",
				Help: "Total OCR result items handled, by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// HTTPMetricsMiddleware records request durations per chi route pattern,
// so path parameters do not explode the label cardinality.
func HTTPMetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.RecordRequestDuration(r.Method+" "+pattern, time.Since(start))
		})
	}
}

// IncrTransactionCreated increments the created-transaction counter.
func (m *Metrics) IncrTransactionCreated(txType string) {
	m.transactionsCreated.WithLabelValues(txType).Inc()
}

// IncrMessageConsumed increments the consumed-message counter.
// Outcome is "ok", "skipped" or "error".
func (m *Metrics) IncrMessageConsumed(queue, outcome string) {
	m.messagesConsumed.WithLabelValues(queue, outcome).Inc()
}

// IncrMessagePublished increments the published-message counter.
func (m *Metrics) IncrMessagePublished(queue string) {
	m.messagesPublished.WithLabelValues(queue).Inc()
}

// IncrPublishError increments the publish-failure counter.
func (m *Metrics) IncrPublishError(queue string) {
	m.publishErrors.WithLabelValues(queue).Inc()
}

// IncrOcrItem increments the OCR item counter. Outcome is "processed" or
// "skipped".
func (m *Metrics) IncrOcrItem(outcome string) {
	m.ocrItems.WithLabelValues(outcome).Inc()
}
