package cascade

import "github.com/prometheus/client_golang/prometheus"

var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webuictl",
			Subsystem: "cascade",
			Name:      "attempts_total",
			Help:      "Total launch attempts by outcome",
		},
		[]string{"outcome"},
	)

	attemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webuictl",
			Subsystem: "cascade",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of launch attempts in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"outcome"},
	)

	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webuictl",
			Subsystem: "cascade",
			Name:      "sessions_total",
			Help:      "Total cascade sessions by terminal outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(attemptsTotal, attemptDuration, sessionsTotal)
}
