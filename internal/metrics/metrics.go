// Package metrics exposes Prometheus collectors for the booking crawler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Candidate outcomes.
const (
	OutcomeFetched       = "fetched"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeStoreFailed   = "store_failed"
	OutcomeExtractFailed = "extract_failed"
	OutcomeSinkFailed    = "sink_failed"
)

// Recorder owns the crawler collectors. A nil Recorder discards observations.
type Recorder struct {
	gatherer prometheus.Gatherer

	runsTotal                  *prometheus.CounterVec
	candidatesTotal            *prometheus.CounterVec
	rowsTotal                  *prometheus.CounterVec
	bytesTotal                 prometheus.Counter
	fetchDurationSeconds       prometheus.Histogram
	lastRunCandidates          prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	r := &Recorder{
		gatherer: gatherer,
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_runs_total",
				Help: "Total number of crawl runs, labeled by seed source.",
			},
			[]string{"seed"},
		),
		candidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_candidates_total",
				Help: "Total number of processed candidates, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_rows_total",
				Help: "Total number of emitted rows, labeled by completeness.",
			},
			[]string{"incomplete"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of page bytes fetched.",
			},
		),
		fetchDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		lastRunCandidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_last_run_candidates",
				Help: "Number of candidates selected by the most recent run.",
			},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		httpRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(
		r.runsTotal,
		r.candidatesTotal,
		r.rowsTotal,
		r.bytesTotal,
		r.fetchDurationSeconds,
		r.lastRunCandidates,
		r.httpRequestsTotal,
		r.httpRequestDurationSeconds,
	)
	return r
}

// Handler serves the registered collectors.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// ObserveRun counts a run and its candidate set size.
func (r *Recorder) ObserveRun(fallback bool, candidates int) {
	if r == nil {
		return
	}
	seed := "manifest"
	if fallback {
		seed = "fallback"
	}
	r.runsTotal.WithLabelValues(seed).Inc()
	r.lastRunCandidates.Set(float64(candidates))
}

// ObserveCandidate counts one candidate outcome.
func (r *Recorder) ObserveCandidate(outcome string) {
	if r == nil {
		return
	}
	r.candidatesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records a successful fetch.
func (r *Recorder) ObserveFetch(bytesFetched int, duration time.Duration) {
	if r == nil {
		return
	}
	if bytesFetched > 0 {
		r.bytesTotal.Add(float64(bytesFetched))
	}
	r.fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveRow counts an emitted row.
func (r *Recorder) ObserveRow(incomplete bool) {
	if r == nil {
		return
	}
	r.rowsTotal.WithLabelValues(strconv.FormatBool(incomplete)).Inc()
}

// ObserveHTTPRequest records an API request.
func (r *Recorder) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	r.httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
