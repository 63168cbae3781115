package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// SubmissionsTotal counts triaged submissions by outcome.
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "triage",
		Name:      "submissions_total",
		Help:      "Total number of triaged submissions, labeled by outcome (created, degraded, rejected, failed).",
	}, []string{"outcome"})

	// OracleRequestDuration is the round-trip time per oracle call.
	OracleRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sentinel",
		Subsystem: "triage",
		Name:      "oracle_request_duration_seconds",
		Help:      "Round-trip time of oracle calls, labeled by oracle (classifier, prioritizer).",
		// Keep buckets fairly coarse to avoid high-cardinality time series.
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"oracle"})

	// OracleErrorsTotal counts failed or unreachable oracle calls. These
	// degrade to default report fields rather than failing the submission,
	// so this counter is the only place the failures stay visible.
	OracleErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "triage",
		Name:      "oracle_errors_total",
		Help:      "Total number of oracle calls that failed and were degraded to defaults, labeled by oracle.",
	}, []string{"oracle"})

	// StatusUpdatesTotal counts dashboard status changes by new status.
	StatusUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "triage",
		Name:      "status_updates_total",
		Help:      "Total number of report status updates applied, labeled by new status.",
	}, []string{"status"})
)

// Register registers triage metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			SubmissionsTotal,
			OracleRequestDuration,
			OracleErrorsTotal,
			StatusUpdatesTotal,
		)
	})
}
