// Package telemetry exposes Prometheus collectors for ingestion runs and
// HTTP requests.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for ingestion runs.
const (
	OutcomeSuccess = "success"
	OutcomeInput   = "input_error"
	OutcomeBusy    = "busy"
	OutcomeFailure = "failure"
)

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics holds the postventa collectors.
type Metrics struct {
	registry *prometheus.Registry

	IngestRuns      *prometheus.CounterVec
	RecordsInserted prometheus.Counter
	RecordsDropped  prometheus.Counter
	IngestDuration  prometheus.Histogram
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers all collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		IngestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postventa_ingest_runs_total",
			Help: "Ingestion runs by outcome",
		}, []string{"outcome"}),
		RecordsInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "postventa_records_inserted_total",
			Help: "Normalized records appended to the history table",
		}),
		RecordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "postventa_records_dropped_total",
			Help: "Candidate records dropped for an empty status",
		}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "postventa_ingest_duration_seconds",
			Help:    "Duration of ingestion runs",
			Buckets: durationBuckets,
		}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postventa_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postventa_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: durationBuckets,
		}, []string{"route"}),
	}
}

// ObserveIngest records a finished ingestion run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObserveIngest(outcome string, inserted, dropped int, start time.Time) {
	m.IngestRuns.WithLabelValues(outcome).Inc()
	m.RecordsInserted.Add(float64(inserted))
	m.RecordsDropped.Add(float64(dropped))
	m.IngestDuration.Observe(time.Since(start).Seconds())
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
