package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SessionsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "purchase_sessions_opened_total",
			Help: "Number of purchase sessions opened",
		},
	)

	SessionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_session_outcomes_total",
			Help: "Terminal purchase session states",
		},
		[]string{"state"},
	)

	OrderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_order_failures_total",
			Help: "Confirm attempts returned to plan selection, by cause",
		},
		[]string{"cause"},
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "purchase_step_duration_seconds",
			Help:    "Time taken by asynchronous purchase steps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)
)

func Register() {
	prometheus.MustRegister(SessionsOpened, SessionOutcomes, OrderFailures, StepDuration)
}
