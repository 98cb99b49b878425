// Package metrics records orchestration outcomes in a Prometheus registry.
//
// Each Recorder owns a private registry. Handler exposes it in the text
// exposition format at /metrics and Summary reads it back for the JSON stats
// endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/engagestory/engagestory/pkg/types"
)

const namespace = "engagestory"

// Metric names as they appear in the exposition.
const (
	PredictionsTotal    = namespace + "_predictions_total"
	SupersededTotal     = namespace + "_superseded_total"
	InternalFaultsTotal = namespace + "_internal_faults_total"
	RemoteLatency       = namespace + "_remote_latency_seconds"
	Generation          = namespace + "_generation"
)

// Remote attempt outcomes used as the "outcome" label.
const (
	OutcomeResolved    = "resolved"
	OutcomeUnavailable = "unavailable"
	OutcomeDeadline    = "deadline"
	OutcomeAbandoned   = "abandoned"
)

// Recorder implements the orchestrator's metrics hooks.
type Recorder struct {
	reg *prometheus.Registry

	predictions   *prometheus.CounterVec
	superseded    prometheus.Counter
	faults        prometheus.Counter
	remoteLatency *prometheus.HistogramVec
	generation    prometheus.Gauge
}

// New creates a Recorder with a fresh registry. Go runtime and process
// collectors are registered alongside the service metrics.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions resolved, by scoring source.",
		}, []string{"source"}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_total",
			Help:      "Submissions whose resolution was discarded because a newer one arrived.",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "internal_faults_total",
			Help:      "Submissions that ended in the failed state.",
		}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_latency_seconds",
			Help:      "Duration of remote inference attempts, by outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 10},
		}, []string{"outcome"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Most recently issued submission generation.",
		}),
	}
	r.reg.MustRegister(
		r.predictions,
		r.superseded,
		r.faults,
		r.remoteLatency,
		r.generation,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	// Pre-create both sources so they are exported as 0 before first use.
	r.predictions.WithLabelValues(string(types.SourceLive))
	r.predictions.WithLabelValues(string(types.SourceSimulated))
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveResult counts one resolved prediction.
func (r *Recorder) ObserveResult(src types.Source) {
	r.predictions.WithLabelValues(string(src)).Inc()
}

// ObserveRemote records one remote attempt.
func (r *Recorder) ObserveRemote(outcome string, d time.Duration) {
	r.remoteLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveSuperseded counts one discarded resolution.
func (r *Recorder) ObserveSuperseded() { r.superseded.Inc() }

// ObserveFault counts one failed lifecycle.
func (r *Recorder) ObserveFault() { r.faults.Inc() }

// SetGeneration publishes the newest generation number.
func (r *Recorder) SetGeneration(g uint64) { r.generation.Set(float64(g)) }
