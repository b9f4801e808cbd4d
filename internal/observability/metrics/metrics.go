package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "forsee_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	predictionsTotal  *prometheus.CounterVec
	predictionLatency *prometheus.HistogramVec

	gateTransitionsTotal *prometheus.CounterVec
	accessDeniedTotal    *prometheus.CounterVec

	roleRequestEventsTotal *prometheus.CounterVec

	actionsDispatchedTotal *prometheus.CounterVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	notificationsTotal *prometheus.CounterVec
)

// Init registers metrics. DB-backed gauges are added when db is not nil.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		predictionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "predictions_total",
				Help: "Total risk predictions by asset and risk level",
			},
			[]string{"asset", "risk"},
		)
		predictionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "prediction_latency_seconds",
				Help:    "Prediction latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		gateTransitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "access_transitions_total",
				Help: "Access gate transitions by source and target state",
			},
			[]string{"from", "to"},
		)
		accessDeniedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "access_denied_total",
				Help: "Operations refused by the access gate",
			},
			[]string{"operation"},
		)

		roleRequestEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "role_request_events_total",
				Help: "Role request lifecycle events by type",
			},
			[]string{"event"},
		)

		actionsDispatchedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "actions_dispatched_total",
				Help: "Maintenance actions dispatched by risk level",
			},
			[]string{"risk"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total prediction report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Prediction report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		notificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Admin notifications by channel and result",
			},
			[]string{"channel", "result"},
		)

		prometheus.MustRegister(
			predictionsTotal,
			predictionLatency,
			gateTransitionsTotal,
			accessDeniedTotal,
			roleRequestEventsTotal,
			actionsDispatchedTotal,
			reportExportTotal,
			reportExportLatency,
			notificationsTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObservePrediction records a completed prediction.
func ObservePrediction(asset, risk string, duration time.Duration) {
	if asset == "" {
		asset = "unknown"
	}
	if predictionsTotal != nil {
		predictionsTotal.WithLabelValues(asset, risk).Inc()
	}
	if predictionLatency != nil {
		predictionLatency.WithLabelValues(resultSuccess).Observe(duration.Seconds())
	}
}

// IncGateTransition counts an applied access transition.
func IncGateTransition(from, to string) {
	if gateTransitionsTotal != nil {
		gateTransitionsTotal.WithLabelValues(from, to).Inc()
	}
}

// IncAccessDenied counts a refused operation.
func IncAccessDenied(operation string) {
	if operation == "" {
		operation = "unknown"
	}
	if accessDeniedTotal != nil {
		accessDeniedTotal.WithLabelValues(operation).Inc()
	}
}

// IncRoleRequestEvent counts role request lifecycle events.
func IncRoleRequestEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	if roleRequestEventsTotal != nil {
		roleRequestEventsTotal.WithLabelValues(event).Inc()
	}
}

// IncActionDispatched counts a dispatched maintenance action.
func IncActionDispatched(risk string) {
	if actionsDispatchedTotal != nil {
		actionsDispatchedTotal.WithLabelValues(risk).Inc()
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncNotification counts a notification attempt.
func IncNotification(channel, result string) {
	if channel == "" {
		channel = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(channel, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
