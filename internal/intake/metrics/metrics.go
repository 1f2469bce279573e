package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MessagesProcessed  *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	StoreOperations    *prometheus.CounterVec
	StoreRetries       prometheus.Counter
	AmbiguousMatches   prometheus.Counter
	NotifierErrors     prometheus.Counter
	ProcessingDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_messages_processed_total",
			Help: "Total number of inbound messages processed, by outcome status",
		}, []string{"status"}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_validation_failures_total",
			Help: "Total number of records rejected by validation, by failing field",
		}, []string{"field"}),
		StoreOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_store_operations_total",
			Help: "Total number of committed store operations, by selector and operation",
		}, []string{"selector", "operation"}),
		StoreRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_store_retries_total",
			Help: "Total number of retried store calls after transient failures",
		}),
		AmbiguousMatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_ambiguous_matches_total",
			Help: "Total number of reconciliations abandoned because several entries matched",
		}),
		NotifierErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_notifier_errors_total",
			Help: "Total number of notification deliveries that failed",
		}),
		ProcessingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_processing_duration_seconds",
			Help:    "End-to-end processing time per message",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveMessage(status string, d time.Duration) {
	m.MessagesProcessed.WithLabelValues(status).Inc()
	m.ProcessingDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrementValidationFailure(field string) {
	m.ValidationFailures.WithLabelValues(field).Inc()
}

func (m *Metrics) IncrementStoreOperation(selector, operation string) {
	m.StoreOperations.WithLabelValues(selector, operation).Inc()
}

func (m *Metrics) IncrementStoreRetries() {
	m.StoreRetries.Inc()
}

func (m *Metrics) IncrementAmbiguousMatches() {
	m.AmbiguousMatches.Inc()
}

func (m *Metrics) IncrementNotifierErrors() {
	m.NotifierErrors.Inc()
}
