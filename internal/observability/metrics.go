// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ads-guardrail/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Evaluation metrics
	EvaluationsTotal   *prometheus.CounterVec
	ReasonsTotal       *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	WarningsTotal      prometheus.Counter

	// Window run metrics
	WindowRunsTotal   *prometheus.CounterVec
	WindowRunDuration prometheus.Histogram
	ScheduledRuns     *prometheus.CounterVec

	// Notification metrics
	WSClients            prometheus.Gauge
	NotificationsSent    prometheus.Counter
	NotificationsDropped prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "ads_guardrail"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Evaluation metrics
		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "total",
			Help:      "Total number of guardrail evaluations by action",
		}, []string{"action"}),
		ReasonsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "reasons_total",
			Help:      "Total number of guardrail reasons fired by code",
		}, []string{"code"}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "duration_seconds",
			Help:      "Time spent evaluating one window",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		WarningsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "warnings_total",
			Help:      "Total number of coverage warnings emitted",
		}),

		// Window run metrics
		WindowRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "window_runs_total",
			Help:      "Total number of window runs by status",
		}, []string{"status"}),
		WindowRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "window_run_duration_seconds",
			Help:      "Window run duration including storage in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ScheduledRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Total number of scheduled batch runs by status",
		}, []string{"status"}),

		// Notification metrics
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "ws_clients",
			Help:      "Number of connected websocket subscribers",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of notifications queued to subscribers",
		}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Total number of notifications dropped for slow subscribers",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful window run",
		}),
	}
}

// RecordEvaluation records the action, fired reasons and warnings of one report.
func (m *Metrics) RecordEvaluation(r *domain.GuardrailReport, d time.Duration) {
	m.EvaluationsTotal.WithLabelValues(string(r.Action)).Inc()
	for _, tier := range [][]domain.GuardrailReason{r.HardReasons, r.SoftReasons, r.NoLiftReasons} {
		for _, reason := range tier {
			m.ReasonsTotal.WithLabelValues(string(reason.Code)).Inc()
		}
	}
	m.WarningsTotal.Add(float64(len(r.Warnings)))
	m.EvaluationDuration.Observe(d.Seconds())
}

// RecordWindowRun records a window run and, on success, the health timestamp.
func (m *Metrics) RecordWindowRun(status string, d time.Duration, at time.Time) {
	m.WindowRunsTotal.WithLabelValues(status).Inc()
	m.WindowRunDuration.Observe(d.Seconds())
	if status == StatusSuccess {
		m.LastSuccessfulRun.Set(float64(at.Unix()))
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Run status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance, registered with the default registry.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)
