package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the detector pipeline.
// A nil *Metrics records nothing.
type Metrics struct {
	Updates            *prometheus.CounterVec
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	BootstrapBatches   *prometheus.CounterVec
	QueueDepth         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbscope",
			Name:      "updates_total",
			Help:      "Reserve updates received, by result.",
		}, []string{"result"}),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbscope",
			Name:      "evaluations_total",
			Help:      "Route evaluations, by outcome.",
		}, []string{"outcome"}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arbscope",
			Name:      "evaluation_duration_seconds",
			Help:      "Time to evaluate every route touched by one update.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		BootstrapBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbscope",
			Name:      "bootstrap_batches_total",
			Help:      "Bulk reserve fetch batches, by result.",
		}, []string{"result"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arbscope",
			Name:      "update_queue_depth",
			Help:      "Reserve updates waiting to be evaluated.",
		}),
	}

	reg.MustRegister(m.Updates, m.Evaluations, m.EvaluationDuration, m.BootstrapBatches, m.QueueDepth)
	return m
}

func (m *Metrics) ObserveUpdate(result string) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEvaluation(outcome string) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFanout(d time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveBatch(result string) {
	if m == nil {
		return
	}
	m.BootstrapBatches.WithLabelValues(result).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
