package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	joinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medqueue_joins_total",
			Help: "Queue joins by result (created, existing).",
		},
		[]string{"result"},
	)

	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medqueue_calls_total",
			Help: "Call-next requests by result (called, empty).",
		},
		[]string{"result"},
	)

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medqueue_transitions_total",
			Help: "Queue entry status transitions by target status.",
		},
		[]string{"to"},
	)

	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medqueue_operation_duration_seconds",
			Help:    "Duration of queue engine operations in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(joinsTotal, callsTotal, transitionsTotal, opDuration)
}

// observe records the duration of op; use as defer observe("join", time.Now()).
func observe(op string, start time.Time) {
	opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
