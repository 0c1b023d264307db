package claimcheck

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds claim-check codec counters.
type Metrics struct {
	OffloadedTotal   prometheus.Counter     // Payloads written to the store
	InlineTotal      prometheus.Counter     // Payloads the policy kept inline
	PassthroughTotal *prometheus.CounterVec // Payloads left untouched, by operation
	RehydratedTotal  prometheus.Counter     // Envelopes resolved from the store
	FailuresTotal    *prometheus.CounterVec // Store or decode failures, by operation

	OffloadedBytes prometheus.Histogram
}

// NewMetrics registers codec metrics with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		OffloadedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "wealth_claimcheck_offloaded_total",
			Help: "Total number of payloads offloaded to the payload store",
		}),
		InlineTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "wealth_claimcheck_inline_total",
			Help: "Total number of payloads kept inline by the offload policy",
		}),
		PassthroughTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wealth_claimcheck_passthrough_total",
			Help: "Total number of payloads passed through unchanged by operation",
		}, []string{"operation"}),
		RehydratedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "wealth_claimcheck_rehydrated_total",
			Help: "Total number of claim-checked payloads resolved from the payload store",
		}),
		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wealth_claimcheck_failures_total",
			Help: "Total number of codec failures by operation",
		}, []string{"operation"}),
		OffloadedBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wealth_claimcheck_offloaded_bytes",
			Help:    "Serialized size of offloaded payloads",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}),
	}
}

func (m *Metrics) recordOffload(size int) {
	if m == nil {
		return
	}
	m.OffloadedTotal.Inc()
	m.OffloadedBytes.Observe(float64(size))
}

func (m *Metrics) recordInline() {
	if m == nil {
		return
	}
	m.InlineTotal.Inc()
}

func (m *Metrics) recordPassthrough(op string) {
	if m == nil {
		return
	}
	m.PassthroughTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) recordRehydrate() {
	if m == nil {
		return
	}
	m.RehydratedTotal.Inc()
}

func (m *Metrics) recordFailure(op string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(op).Inc()
}
