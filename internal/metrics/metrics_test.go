package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFeeMetrics(t *testing.T) {
	m := NewFeeMetrics(prometheus.NewRegistry())

	m.ObserveDecision("managed", "decrease")
	m.ObserveDecision("managed", "decrease")
	m.ObserveDecision("fixed", "")
	m.ObservePush(PushOK)
	m.ObservePush(PushError)
	m.ObserveRatio("c1", 0.42)

	start := time.Unix(1000, 0)
	m.ObserveRun(start, start.Add(2*time.Second))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("managed", "decrease")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("fixed", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pushes.WithLabelValues(PushOK)))
	assert.Equal(t, 0.42, testutil.ToFloat64(m.channelRatio.WithLabelValues("c1")))
	assert.Equal(t, 1002.0, testutil.ToFloat64(m.lastRun))
}

func TestFeeMetrics_NilSafe(t *testing.T) {
	var m *FeeMetrics
	m.ObserveDecision("managed", "stable")
	m.ObservePush(PushOK)
	m.ObserveRatio("c1", 1)
	m.ObserveRun(time.Now(), time.Now())
}
