// Package metrics exposes Prometheus counters for the pipeline and scheduler.
// Every method is safe to call on a nil *Metrics, so components can run without them.
package metrics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "c2cradar"

// Metrics holds the collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	postingsIngested *prometheus.CounterVec
	taskRuns         *prometheus.CounterVec
	taskDuration     *prometheus.HistogramVec
	alertsDelivered  *prometheus.CounterVec
	sweepItems       *prometheus.CounterVec
	collectorErrors  *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		postingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_ingested_total",
			Help:      "Raw postings processed by the ingestion pipeline, by outcome.",
		}, []string{"outcome"}),
		taskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Scheduled task runs, by task and outcome.",
		}, []string{"task", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of scheduled task runs.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"task"}),
		alertsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_delivered_total",
			Help:      "Alert notifications attempted, by outcome.",
		}, []string{"outcome"}),
		sweepItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_items_total",
			Help:      "Postings changed by a sweep (deleted or rescored).",
		}, []string{"sweep"}),
		collectorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collector_errors_total",
			Help:      "Failed collector calls, by source.",
		}, []string{"source"}),
	}
	reg.MustRegister(
		m.postingsIngested,
		m.taskRuns,
		m.taskDuration,
		m.alertsDelivered,
		m.sweepItems,
		m.collectorErrors,
	)
	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Ingested counts one processed raw posting. outcome is inserted, duplicate or error.
func (m *Metrics) Ingested(outcome string) {
	if m == nil {
		return
	}
	m.postingsIngested.WithLabelValues(outcome).Inc()
}

// TaskRun records one scheduled run.
func (m *Metrics) TaskRun(task, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskRuns.WithLabelValues(task, outcome).Inc()
	m.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

// AlertDelivered counts one delivery attempt. outcome is sent, failed or skipped.
func (m *Metrics) AlertDelivered(outcome string) {
	if m == nil {
		return
	}
	m.alertsDelivered.WithLabelValues(outcome).Inc()
}

// SweepItems adds n changed postings for a sweep.
func (m *Metrics) SweepItems(sweep string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepItems.WithLabelValues(sweep).Add(float64(n))
}

// CollectorFailed counts one failed collector call.
func (m *Metrics) CollectorFailed(source string) {
	if m == nil {
		return
	}
	m.collectorErrors.WithLabelValues(source).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// OpsMux serves /metrics and, when status is non-nil, /status as JSON.
func OpsMux(m *Metrics, status func() any) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if status != nil {
		mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(status()); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		})
	}
	return mux
}
