package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the contracts module.
type Metrics struct {
	// Issuance outcomes by result: issued, reused, failed
	IssueOutcome *prometheus.CounterVec

	// Drafts rendered
	Drafts prometheus.Counter

	// Render/convert pipeline latency by stage
	StageLatency *prometheus.HistogramVec

	// Failures by error code
	Failures *prometheus.CounterVec
}

// New creates a Metrics instance with all contracts module metrics registered.
func New() *Metrics {
	return &Metrics{
		IssueOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rentaldocs_contract_issue_total",
			Help: "Total contract issuance outcomes",
		}, []string{"result"}), // result: "issued", "reused", "failed"

		Drafts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rentaldocs_contract_drafts_total",
			Help: "Total draft documents rendered",
		}),

		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rentaldocs_contract_stage_duration_seconds",
			Help:    "Duration of issuance pipeline stages",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}), // stage: "render", "convert", "store", "persist"

		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rentaldocs_contract_failures_total",
			Help: "Total issuance failures by error code",
		}, []string{"code"}),
	}
}

// IncrementIssueOutcome records one issuance result.
func (m *Metrics) IncrementIssueOutcome(result string) {
	if m != nil {
		m.IssueOutcome.WithLabelValues(result).Inc()
	}
}

// IncrementDrafts records a rendered draft.
func (m *Metrics) IncrementDrafts() {
	if m != nil {
		m.Drafts.Inc()
	}
}

// ObserveStageLatency records the duration of a pipeline stage.
func (m *Metrics) ObserveStageLatency(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementFailures records a failure by error code.
func (m *Metrics) IncrementFailures(code string) {
	if m != nil {
		m.Failures.WithLabelValues(code).Inc()
	}
}
