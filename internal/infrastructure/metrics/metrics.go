package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Patches-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "submissions_total",
			Help:      "Patch submissions by outcome",
		},
		[]string{"outcome"},
	)

	ModerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "moderations_total",
			Help:      "Moderation decisions by outcome",
		},
		[]string{"decision", "outcome"},
	)

	// Analyzer process duration
	AnalyzerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "analyzer_duration_seconds",
			Help:      "Manifest analyzer run time in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)

	RenditionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "renditions_total",
			Help:      "Derived image renditions by kind and status",
		},
		[]string{"kind", "status"},
	)

	CleanupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "cleanup_failures_total",
			Help:      "Staged files that could not be removed",
		},
	)

	TokenConsumeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "token_consume_failures_total",
			Help:      "Action tokens left behind after a stored submission",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "notifications_total",
			Help:      "Outbound notifications by event and status",
		},
		[]string{"event", "status"},
	)

	// S3 mirror operations
	MirrorOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "mirror_operations_total",
			Help:      "Total S3 mirror uploads",
		},
		[]string{"status"},
	)

	MirrorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bespoke",
			Subsystem: "patches_api",
			Name:      "mirror_duration_seconds",
			Help:      "S3 mirror upload duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordSubmission records the outcome of a patch submission
func RecordSubmission(outcome string) {
	SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordModeration records a moderation decision
func RecordModeration(decision, outcome string) {
	ModerationsTotal.WithLabelValues(decision, outcome).Inc()
}

// RecordAnalyzer records one analyzer run
func RecordAnalyzer(status string, durationSec float64) {
	AnalyzerDuration.WithLabelValues(status).Observe(durationSec)
}

// RecordRendition records a thumbnail or cover attempt
func RecordRendition(kind, status string) {
	RenditionsTotal.WithLabelValues(kind, status).Inc()
}

func RecordCleanupFailure() {
	CleanupFailuresTotal.Inc()
}

func RecordTokenConsumeFailure() {
	TokenConsumeFailuresTotal.Inc()
}

// RecordNotification records an outbound notification attempt
func RecordNotification(event, status string) {
	NotificationsTotal.WithLabelValues(event, status).Inc()
}

// RecordMirror records an S3 mirror upload
func RecordMirror(status string, durationSec float64) {
	MirrorOperationsTotal.WithLabelValues(status).Inc()
	MirrorDuration.Observe(durationSec)
}
