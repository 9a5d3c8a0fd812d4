package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QuotesSent counts quote frames delivered to sessions, by path (stream/snapshot).
var QuotesSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quotestream_quotes_sent_total",
		Help: "Total number of quote frames delivered to sessions",
	},
	[]string{"path"},
)

// SendFailures counts failed deliveries that caused a session to be pruned.
var SendFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "quotestream_send_failures_total",
		Help: "Total number of failed sends resulting in session removal",
	},
)

// ActiveSessions tracks the number of registered subscriber sessions.
var ActiveSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "quotestream_active_sessions",
		Help: "Number of currently registered subscriber sessions",
	},
)

// TickDuration records the duration of each broadcast cycle.
var TickDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "quotestream_tick_duration_seconds",
		Help:    "Duration in seconds of one full broadcast cycle",
		Buckets: prometheus.DefBuckets,
	},
)

// ExternalFetches counts upstream quote fetch attempts by result (ok/error/rate_limited).
var ExternalFetches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quotestream_external_fetches_total",
		Help: "Total number of external quote provider fetch attempts",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(QuotesSent, SendFailures, ActiveSessions)
	prometheus.MustRegister(TickDuration, ExternalFetches)
}
