package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FeeMetrics tracks engine decisions and gateway pushes.
type FeeMetrics struct {
	decisions    *prometheus.CounterVec
	pushes       *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastRun      prometheus.Gauge
	channelRatio *prometheus.GaugeVec
}

var (
	feeOnce     sync.Once
	feeRegistry *FeeMetrics
)

// Fee returns the process-wide metrics registered on the default registry.
func Fee() *FeeMetrics {
	feeOnce.Do(func() {
		feeRegistry = NewFeeMetrics(prometheus.DefaultRegisterer)
	})
	return feeRegistry
}

// NewFeeMetrics creates and registers the collectors on reg.
func NewFeeMetrics(reg prometheus.Registerer) *FeeMetrics {
	m := &FeeMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lnfee_decisions_total",
			Help: "Engine decisions by channel class and reason.",
		}, []string{"class", "reason"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lnfee_fee_pushes_total",
			Help: "Fee updates sent to the node by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lnfee_run_duration_seconds",
			Help:    "Wall time of a full fee run.",
			Buckets: prometheus.DefBuckets,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lnfee_last_run_timestamp_seconds",
			Help: "Unix time of the last completed fee run.",
		}),
		channelRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lnfee_channel_local_ratio",
			Help: "Latest local balance ratio of managed channels.",
		}, []string{"channel_id"}),
	}
	reg.MustRegister(m.decisions, m.pushes, m.runDuration, m.lastRun, m.channelRatio)
	return m
}

// Push results.
const (
	PushOK     = "ok"
	PushError  = "error"
	PushDryRun = "dry_run"
)

// ObserveDecision counts one engine decision.
func (m *FeeMetrics) ObserveDecision(class, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.decisions.WithLabelValues(class, reason).Inc()
}

// ObservePush counts one fee push by result.
func (m *FeeMetrics) ObservePush(result string) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(result).Inc()
}

// ObserveRatio sets the latest local balance ratio of a channel.
func (m *FeeMetrics) ObserveRatio(channelID string, ratio float64) {
	if m == nil {
		return
	}
	m.channelRatio.WithLabelValues(channelID).Set(ratio)
}

// ObserveRun records the duration and completion time of a run.
func (m *FeeMetrics) ObserveRun(started time.Time, finished time.Time) {
	if m == nil {
		return
	}
	m.runDuration.Observe(finished.Sub(started).Seconds())
	m.lastRun.Set(float64(finished.Unix()))
}
