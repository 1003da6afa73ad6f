// Package metrics exposes Prometheus instruments for classification jobs.
package metrics

import (
	"net/http"
	"time"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "star_classifier"

// Metrics holds the collectors of one registry. Each instance owns its
// registry, so several can coexist in tests.
type Metrics struct {
	registry     *prometheus.Registry
	jobs         *prometheus.CounterVec
	jobDuration  prometheus.Histogram
	classified   *prometheus.CounterVec
	skipped      prometheus.Counter
	jobsInFlight prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Classification jobs by final status.",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of classification jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repositories_classified_total",
			Help:      "Repositories assigned to each category.",
		}, []string{"category"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repositories_skipped_total",
			Help:      "Invalid repository records skipped during classification.",
		}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Classification jobs currently running.",
		}),
	}
	m.registry.MustRegister(
		m.jobs,
		m.jobDuration,
		m.classified,
		m.skipped,
		m.jobsInFlight,
		collectors.NewGoCollector(),
	)
	return m
}

// JobStarted marks a job as running.
func (m *Metrics) JobStarted() {
	m.jobsInFlight.Inc()
}

// JobFinished records the outcome of a job that ran for d.
func (m *Metrics) JobFinished(status domain.JobStatus, d time.Duration) {
	m.jobsInFlight.Dec()
	m.jobs.WithLabelValues(string(status)).Inc()
	m.jobDuration.Observe(d.Seconds())
}

// ObserveResult counts the categories of a completed run.
func (m *Metrics) ObserveResult(res *domain.Result) {
	if res == nil || res.Stats == nil {
		return
	}
	for category, n := range res.Stats.Categories {
		m.classified.WithLabelValues(category).Add(float64(n))
	}
	m.skipped.Add(float64(res.Skipped))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
