package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTrackedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_events_tracked_total",
			Help: "Total number of tracking events accepted, by event kind (count)",
		},
		[]string{"kind"},
	)

	SinkDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_sink_dispatch_total",
			Help: "Per-sink dispatch outcomes for tracked events (count)",
		},
		[]string{"sink", "status"},
	)

	SinkDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_sink_dispatch_duration_ms",
			Help:    "Dispatch duration per sink in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"sink"},
	)

	AttributionCapturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_attribution_captures_total",
			Help: "Attribution capture outcomes: captured, existing or none (count)",
		},
		[]string{"result"},
	)

	AttributionReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_attribution_reads_total",
			Help: "Attribution reads by resolving store: persistent, session or none (count)",
		},
		[]string{"store"},
	)

	LeadSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_lead_submissions_total",
			Help: "Lead submissions per provider per outcome (count)",
		},
		[]string{"provider", "status"},
	)

	LeadSubmissionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_lead_submission_duration_ms",
			Help:    "Provider call duration for lead submissions in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"provider"},
	)

	BusPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_bus_publish_total",
			Help: "Event bus publish outcomes (count)",
		},
		[]string{"status"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_ratelimit_requests_total",
			Help: "Requests seen by the rate limiter, allowed vs limited (count)",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)
)

func RegisterFunnelMetrics() {
	prometheus.MustRegister(
		EventsTrackedTotal,
		SinkDispatchTotal,
		SinkDispatchDuration,
		AttributionCapturesTotal,
		AttributionReadsTotal,
		BusPublishTotal,
	)
}

func RegisterLeadMetrics() {
	prometheus.MustRegister(
		LeadSubmissionsTotal,
		LeadSubmissionDuration,
	)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
	)
}

func ObserveSinkDispatch(sink string, duration time.Duration, status string) {
	SinkDispatchTotal.WithLabelValues(sink, status).Inc()
	SinkDispatchDuration.WithLabelValues(sink).Observe(float64(duration.Milliseconds()))
}

func ObserveLeadSubmission(provider string, duration time.Duration, status string) {
	LeadSubmissionsTotal.WithLabelValues(provider, status).Inc()
	LeadSubmissionDuration.WithLabelValues(provider).Observe(float64(duration.Milliseconds()))
}
