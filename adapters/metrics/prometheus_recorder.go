// Package metrics records instance-build telemetry in a Prometheus registry.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"causalbench/ports"
)

// Recorder implements ports.BuildRecorder on its own registry
type Recorder struct {
	AttemptsTotal  *prometheus.CounterVec
	InstancesTotal *prometheus.CounterVec
	LabelGap       *prometheus.HistogramVec
	BuildsTotal    *prometheus.CounterVec
	BuildAttempts  prometheus.Histogram

	registry *prometheus.Registry
}

// NewRecorder creates a recorder with all metrics registered
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}
	factory := promauto.With(r.registry)

	r.AttemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causalbench_attempts_total",
			Help: "Build attempts by motif and outcome",
		},
		[]string{"scm_kind", "outcome"},
	)

	r.InstancesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causalbench_instances_total",
			Help: "Accepted instances by motif and gold label",
		},
		[]string{"scm_kind", "label"},
	)

	r.LabelGap = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "causalbench_label_gap",
			Help:    "Absolute obs/do probability gap of accepted instances",
			Buckets: []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.3, 0.5},
		},
		[]string{"label"},
	)

	r.BuildsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causalbench_builds_total",
			Help: "Finished builds by status",
		},
		[]string{"status"},
	)

	r.BuildAttempts = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "causalbench_build_attempts",
			Help:    "Attempts consumed per build",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	return r
}

func (r *Recorder) AttemptEvaluated(kind, outcome string) {
	r.AttemptsTotal.WithLabelValues(kind, outcome).Inc()
}

func (r *Recorder) InstanceAccepted(kind, label string, gap float64) {
	r.InstancesTotal.WithLabelValues(kind, label).Inc()
	r.LabelGap.WithLabelValues(label).Observe(gap)
}

func (r *Recorder) BuildFinished(ok bool, attempts int) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	r.BuildsTotal.WithLabelValues(status).Inc()
	r.BuildAttempts.Observe(float64(attempts))
}

// WriteText dumps every gathered family in the text exposition format
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

var _ ports.BuildRecorder = (*Recorder)(nil)
