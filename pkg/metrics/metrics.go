// Package metrics defines the Prometheus metric collectors used across the
// correlation engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	DocumentsAccepted    prometheus.Counter
	QueriesAccepted      *prometheus.CounterVec
	MatchesEmitted       *prometheus.CounterVec
	AcceptLatency        *prometheus.HistogramVec
	CandidatesPerAccept  *prometheus.HistogramVec
	IndexTerms           *prometheus.GaugeVec
	MatchAllQueries      prometheus.Gauge
	SinkErrorsTotal      *prometheus.CounterVec
	SinkDroppedTotal     *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg. Tests
// pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocumentsAccepted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "correlator_documents_accepted_total",
				Help: "Total documents accepted.",
			},
		),
		QueriesAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "correlator_queries_accepted_total",
				Help: "Total standing queries accepted by query type.",
			},
			[]string{"query_type"},
		),
		MatchesEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "correlator_matches_emitted_total",
				Help: "Total matches emitted by trigger (document, query) and query type.",
			},
			[]string{"trigger", "query_type"},
		),
		AcceptLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "correlator_accept_latency_seconds",
				Help:    "Time spent indexing and matching one accepted item, excluding sink delivery.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"trigger"},
		),
		CandidatesPerAccept: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "correlator_candidates_per_accept",
				Help:    "Candidate set size produced by index lookup per accepted item.",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 10000},
			},
			[]string{"trigger"},
		),
		IndexTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "correlator_index_terms",
				Help: "Distinct terms per inverted index.",
			},
			[]string{"index"},
		),
		MatchAllQueries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "correlator_match_all_queries",
				Help: "Registered queries with no required terms.",
			},
		),
		SinkErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "correlator_sink_errors_total",
				Help: "Match deliveries that failed, by sink.",
			},
			[]string{"sink"},
		),
		SinkDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "correlator_sink_dropped_total",
				Help: "Matches dropped because a sink buffer was full, by sink.",
			},
			[]string{"sink"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocumentsAccepted,
		m.QueriesAccepted,
		m.MatchesEmitted,
		m.AcceptLatency,
		m.CandidatesPerAccept,
		m.IndexTerms,
		m.MatchAllQueries,
		m.SinkErrorsTotal,
		m.SinkDroppedTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
