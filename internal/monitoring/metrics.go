// internal/monitoring/metrics.go

// Package monitoring exposes Prometheus metrics for the crawl
// pipeline.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the pipeline's Prometheus collectors.
type Metrics struct {
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram

	batchRunsTotal  prometheus.Counter
	batchItemsTotal *prometheus.CounterVec
	batchDuration   prometheus.Histogram

	linksExtracted prometheus.Counter
	jobsByState    *prometheus.GaugeVec
}

// NewMetrics registers the pipeline metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh
// registry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitecrawl",
				Name:      "fetches_total",
				Help:      "Total number of page fetches by result",
			},
			[]string{"status"},
		),
		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sitecrawl",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of page fetches",
				Buckets:   prometheus.DefBuckets,
			},
		),
		batchRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitecrawl",
				Name:      "batch_runs_total",
				Help:      "Total number of batch runs started",
			},
		),
		batchItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitecrawl",
				Name:      "batch_items_total",
				Help:      "Batch items processed by outcome",
			},
			[]string{"outcome"},
		),
		batchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sitecrawl",
				Name:      "batch_duration_seconds",
				Help:      "Duration of whole batch runs",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		linksExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitecrawl",
				Name:      "links_extracted_total",
				Help:      "Candidate links discovered on list pages",
			},
		),
		jobsByState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sitecrawl",
				Name:      "jobs_by_state",
				Help:      "Crawl jobs currently in each lifecycle state",
			},
			[]string{"state"},
		),
	}
}

// ObserveFetch records one fetch attempt. statusCode 0 means the
// request never produced a response.
func (m *Metrics) ObserveFetch(statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.fetchesTotal.WithLabelValues(status).Inc()
	m.fetchDuration.Observe(duration.Seconds())
}

// ObserveBatchStart records the start of a batch run.
func (m *Metrics) ObserveBatchStart() {
	if m == nil {
		return
	}
	m.batchRunsTotal.Inc()
}

// ObserveBatchItem records the outcome of one batch item.
func (m *Metrics) ObserveBatchItem(outcome string) {
	if m == nil {
		return
	}
	m.batchItemsTotal.WithLabelValues(outcome).Inc()
}

// ObserveBatchDone records a completed batch run.
func (m *Metrics) ObserveBatchDone(duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
}

// ObserveLinks records discovered list-page links.
func (m *Metrics) ObserveLinks(count int) {
	if m == nil {
		return
	}
	m.linksExtracted.Add(float64(count))
}

// SetJobsInState reports the current number of jobs in a state.
func (m *Metrics) SetJobsInState(state string, n int) {
	if m == nil {
		return
	}
	m.jobsByState.WithLabelValues(state).Set(float64(n))
}
