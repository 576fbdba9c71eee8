package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lease-service/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Workflow transition metrics
	TransitionsTotal *prometheus.CounterVec

	// Settlement metrics
	InvoicesPaidTotal prometheus.Counter

	// Collaborator metrics
	NotificationFailuresTotal prometheus.Counter

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	prefix := config.Metrics.Prefix

	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_transitions_total",
			Help: "Total number of workflow transition attempts",
		},
		[]string{"aggregate", "event", "outcome"},
	)

	InvoicesPaidTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_invoices_paid_total",
			Help: "Total number of invoices marked paid",
		},
	)

	NotificationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_notification_failures_total",
			Help: "Total number of failed notification deliveries",
		},
	)

	DbOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)
}

// RecordTransition counts one workflow transition attempt. Safe to call
// before InitMetrics; it is then a no-op.
func RecordTransition(aggregate, event, outcome string) {
	if TransitionsTotal == nil {
		return
	}
	TransitionsTotal.WithLabelValues(aggregate, event, outcome).Inc()
	if aggregate == "invoice" && event == "paid" && outcome == "accepted" && InvoicesPaidTotal != nil {
		InvoicesPaidTotal.Inc()
	}
}

// RecordNotificationFailure counts one failed best-effort delivery.
func RecordNotificationFailure() {
	if NotificationFailuresTotal == nil {
		return
	}
	NotificationFailuresTotal.Inc()
}

// TrackDBOperation returns a function that records the duration of a
// database operation.
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if DbOperationDuration == nil {
			return
		}
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}
