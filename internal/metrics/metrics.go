// Package metrics exposes Prometheus counters for the change review workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reconciliation results
const (
	ReconcileApplied = "applied"
	ReconcileFailed  = "failed"
)

// Recorder holds the application's collectors. A nil *Recorder records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	proposed        *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewRecorder registers the collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		proposed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "specboard_field_changes_proposed_total",
			Help: "Field changes recorded as suggestions, by field type.",
		}, []string{"field_type"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "specboard_field_change_decisions_total",
			Help: "Accept and reject decisions on field changes.",
		}, []string{"decision"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "specboard_reconciliations_total",
			Help: "Attempts to write accepted changes into feature specs, by result.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "specboard_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(r.proposed, r.decisions, r.reconciliations, r.httpDuration)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ChangeProposed(fieldType string) {
	if r == nil {
		return
	}
	r.proposed.WithLabelValues(fieldType).Inc()
}

func (r *Recorder) ChangeDecided(decision string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(decision).Inc()
}

func (r *Recorder) Reconciled(result string) {
	if r == nil {
		return
	}
	r.reconciliations.WithLabelValues(result).Inc()
}

// ObserveRequest records one HTTP request. route is the matched mux pattern,
// not the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
