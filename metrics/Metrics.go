// Package metrics exports Prometheus metrics of policy gradient
// updates.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the Prometheus metrics of a learner. Each Recorder
// registers its metrics with its own registry, so any number of
// Recorders may exist at once.
//
// Metrics:
//   - pgcore_updates_total - Count of completed update steps
//   - pgcore_update_errors_total - Count of failed update steps
//   - pgcore_policy_loss - Policy loss of the latest update
//   - pgcore_baseline_loss - Baseline loss of the latest update
//   - pgcore_batch_size - Transitions in the latest batch
//   - pgcore_batch_trajectories - Trajectories in the latest batch
//   - pgcore_update_duration_seconds - Histogram of update durations
type Recorder struct {
	registry *prometheus.Registry

	UpdatesTotal      prometheus.Counter
	UpdateErrorsTotal prometheus.Counter
	PolicyLoss        prometheus.Gauge
	BaselineLoss      prometheus.Gauge
	BatchSize         prometheus.Gauge
	BatchTrajectories prometheus.Gauge
	UpdateDuration    prometheus.Histogram
}

// NewRecorder creates a Recorder and registers its metrics
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		UpdatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pgcore_updates_total",
			Help: "Total number of completed policy gradient updates",
		}),
		UpdateErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pgcore_update_errors_total",
			Help: "Total number of policy gradient updates that failed",
		}),
		PolicyLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pgcore_policy_loss",
			Help: "Policy loss of the latest update",
		}),
		BaselineLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pgcore_baseline_loss",
			Help: "Baseline loss of the final baseline step of the " +
				"latest update",
		}),
		BatchSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pgcore_batch_size",
			Help: "Number of transitions in the latest batch",
		}),
		BatchTrajectories: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pgcore_batch_trajectories",
			Help: "Number of trajectories in the latest batch",
		}),
		UpdateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pgcore_update_duration_seconds",
			Help:    "Duration of policy gradient updates in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
	}
}

// ObserveUpdate records a successful update
func (r *Recorder) ObserveUpdate(transitions, trajectories int,
	policyLoss float64, baselineLoss *float64, took time.Duration) {
	r.UpdatesTotal.Inc()
	r.BatchSize.Set(float64(transitions))
	r.BatchTrajectories.Set(float64(trajectories))
	r.PolicyLoss.Set(policyLoss)
	if baselineLoss != nil {
		r.BaselineLoss.Set(*baselineLoss)
	}
	r.UpdateDuration.Observe(took.Seconds())
}

// ObserveError records a failed update
func (r *Recorder) ObserveError() {
	r.UpdateErrorsTotal.Inc()
}

// Registry returns the registry the Recorder's metrics are registered
// with
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler that serves the Recorder's metrics
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
