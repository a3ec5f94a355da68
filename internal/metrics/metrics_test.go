package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveUpdate("applied")
	m.ObserveUpdate("applied")
	m.ObserveUpdate("unknown_pool")
	m.ObserveEvaluation("opportunity")
	m.ObserveBatch("failed")
	m.ObserveFanout(time.Millisecond)
	m.SetQueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Updates.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues("unknown_pool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("opportunity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BootstrapBatches.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpdate("applied")
		m.ObserveEvaluation("failed")
		m.ObserveFanout(time.Second)
		m.ObserveBatch("ok")
		m.SetQueueDepth(1)
	})
}
