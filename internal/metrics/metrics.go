// Package metrics exposes analysis and oracle statistics to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/OFFIS-RIT/parversion/pkg/ai"
	"github.com/OFFIS-RIT/parversion/pkg/analysis"
	"github.com/OFFIS-RIT/parversion/pkg/common"
)

const namespace = "parversion"

// Recorder implements analysis.Recorder on top of Prometheus collectors
// registered with one Registerer.
type Recorder struct {
	oracleCalls    prometheus.Counter
	basisNodes     *prometheus.CounterVec
	networks       *prometheus.CounterVec
	skippedNodes   prometheus.Counter
	runs           *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	modelRequests  *prometheus.CounterVec
	modelTokens    *prometheus.CounterVec
	modelLatencyMs prometheus.Counter
}

// New registers the analysis collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		oracleCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Oracle invocations for lineage groups without a stored basis node",
		}),
		basisNodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "basis_node_lookups_total",
			Help:      "Basis node lookups by result",
		}, []string{"result"}),
		networks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "basis_networks_derived_total",
			Help:      "Basis networks derived by relationship kind",
		}, []string{"kind"}),
		skippedNodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_nodes_total",
			Help:      "Nodes skipped during merge because their basis node was missing",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by status",
		}, []string{"status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Analysis run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		}, []string{"status"}),
		modelRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Model requests by source",
		}, []string{"source"}),
		modelTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Model tokens by direction",
		}, []string{"direction"}),
		modelLatencyMs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_duration_milliseconds_total",
			Help:      "Accumulated model request time in milliseconds",
		}),
	}
}

func (r *Recorder) OracleCall() {
	r.oracleCalls.Inc()
}

func (r *Recorder) BasisNodeHit() {
	r.basisNodes.WithLabelValues("hit").Inc()
}

func (r *Recorder) BasisNodeMiss() {
	r.basisNodes.WithLabelValues("miss").Inc()
}

func (r *Recorder) NetworkDerived(kind common.RelationshipKind) {
	r.networks.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) NodeSkipped() {
	r.skippedNodes.Inc()
}

func (r *Recorder) RunFinished(d time.Duration, err error) {
	status := Status(err)
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveModel adds a ModelMetrics snapshot, usually taken right before the
// client's metrics are reset.
func (r *Recorder) ObserveModel(m ai.ModelMetrics) {
	r.modelRequests.WithLabelValues("model").Add(float64(m.Requests))
	r.modelRequests.WithLabelValues("cache").Add(float64(m.CacheHits))
	r.modelTokens.WithLabelValues("input").Add(float64(m.InputTokens))
	r.modelTokens.WithLabelValues("output").Add(float64(m.OutputTokens))
	r.modelLatencyMs.Add(float64(m.DurationMs))
}

// Status maps a run error to the status label.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrOracle):
		return "oracle_error"
	case errors.Is(err, common.ErrStoreParse):
		return "store_error"
	case errors.Is(err, common.ErrInputIO), errors.Is(err, common.ErrOutputIO):
		return "io_error"
	default:
		return "error"
	}
}

var _ analysis.Recorder = (*Recorder)(nil)
