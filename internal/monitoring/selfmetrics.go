package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline self-observability, exported on /metrics. These describe the
// monitoring pipeline itself, not the application it watches.
var (
	samplesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perfmon_samples_recorded_total",
		Help: "Metric samples recorded, by category.",
	}, []string{"category"})

	alertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perfmon_alerts_fired_total",
		Help: "Alerts fired, by severity.",
	}, []string{"severity"})

	alertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perfmon_alerts_suppressed_total",
		Help: "Alerts suppressed by cooldown, by rule.",
	}, []string{"rule"})

	channelFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perfmon_channel_failures_total",
		Help: "Alert delivery failures, by channel.",
	}, []string{"channel"})
)
