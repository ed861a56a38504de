// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Poll cycle metrics
	CyclesTotal       *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	ActiveSetSize     prometheus.Gauge
	TrackedMatches    prometheus.Gauge
	CycleMatchErrors  prometheus.Counter

	// Detection metrics
	MatchesCreated    prometheus.Counter
	TargetsTouched    prometheus.Counter
	MatchesFinished   prometheus.Counter
	HistoryAppended   prometheus.Counter
	RetentionEvicted  prometheus.Counter

	// Notification metrics
	NotificationsEnqueued  *prometheus.CounterVec
	NotificationsDelivered prometheus.Counter
	NotificationsDropped   prometheus.Counter

	// Upstream metrics
	UpstreamCallLatency *prometheus.HistogramVec
	UpstreamCallErrors  *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "linewatch"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "cycles_total",
			Help:      "Total number of poll cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveSetSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "active_set_size",
			Help:      "Number of live matches in the last active set",
		}),
		TrackedMatches: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "tracked_matches",
			Help:      "Total number of matches currently stored",
		}),
		CycleMatchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "cycle_match_errors_total",
			Help:      "Total number of per-match errors skipped during cycles",
		}),

		MatchesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "matches_created_total",
			Help:      "Total number of tracked matches created",
		}),
		TargetsTouched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "targets_touched_total",
			Help:      "Total number of matches whose line reached the league target",
		}),
		MatchesFinished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "matches_finished_total",
			Help:      "Total number of matches transitioned to finished",
		}),
		HistoryAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "history_rows_appended_total",
			Help:      "Total number of distinct line history rows appended",
		}),
		RetentionEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "retention_evicted_total",
			Help:      "Total number of matches evicted by retention",
		}),

		NotificationsEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "enqueued_total",
			Help:      "Total number of notifications enqueued by kind",
		}, []string{"kind"}),
		NotificationsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "delivered_total",
			Help:      "Total number of notifications delivered to the gateway",
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Total number of notifications dropped after retry ceiling",
		}),

		UpstreamCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_latency_seconds",
			Help:      "Upstream feed call latency by endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		UpstreamCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_errors_total",
			Help:      "Total number of upstream feed call errors by endpoint",
		}, []string{"endpoint"}),

		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last completed poll cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycle records one poll cycle.
func RecordCycle(status string, durationSeconds float64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
}

// UpdateActiveSetSize updates the active set gauge.
func UpdateActiveSetSize(n int) {
	DefaultMetrics.ActiveSetSize.Set(float64(n))
}

// UpdateTrackedMatches updates the stored matches gauge.
func UpdateTrackedMatches(n int64) {
	DefaultMetrics.TrackedMatches.Set(float64(n))
}

// RecordMatchError counts a per-match error skipped during a cycle.
func RecordMatchError() {
	DefaultMetrics.CycleMatchErrors.Inc()
}

// RecordMatchCreated counts a newly tracked match.
func RecordMatchCreated() {
	DefaultMetrics.MatchesCreated.Inc()
}

// RecordTargetTouched counts a first target touch.
func RecordTargetTouched() {
	DefaultMetrics.TargetsTouched.Inc()
}

// RecordMatchFinished counts a completion transition.
func RecordMatchFinished() {
	DefaultMetrics.MatchesFinished.Inc()
}

// RecordHistoryAppended counts a distinct history row.
func RecordHistoryAppended() {
	DefaultMetrics.HistoryAppended.Inc()
}

// RecordEvicted counts retention evictions.
func RecordEvicted(n int) {
	DefaultMetrics.RetentionEvicted.Add(float64(n))
}

// RecordNotificationEnqueued counts an enqueued notification by kind.
func RecordNotificationEnqueued(kind string) {
	DefaultMetrics.NotificationsEnqueued.WithLabelValues(kind).Inc()
}

// RecordNotificationDelivered counts a delivered notification.
func RecordNotificationDelivered() {
	DefaultMetrics.NotificationsDelivered.Inc()
}

// RecordNotificationDropped counts a dropped notification.
func RecordNotificationDropped() {
	DefaultMetrics.NotificationsDropped.Inc()
}

// RecordUpstreamCall records latency and outcome of an upstream call.
func RecordUpstreamCall(endpoint string, seconds float64, err error) {
	DefaultMetrics.UpstreamCallLatency.WithLabelValues(endpoint).Observe(seconds)
	if err != nil {
		DefaultMetrics.UpstreamCallErrors.WithLabelValues(endpoint).Inc()
	}
}

// RecordCycleCompleted updates the health gauge.
func RecordCycleCompleted(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulCycle.Set(float64(unixSeconds))
}
