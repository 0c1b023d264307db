package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for account opening traffic.
type Metrics struct {
	OpeningsStarted prometheus.Counter
	SignalsSent     *prometheus.CounterVec
	EngineErrors    *prometheus.CounterVec
	EngineLatency   *prometheus.HistogramVec
}

// New registers the metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		OpeningsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "wealth_openings_started_total",
			Help: "Total number of account opening workflows started",
		}),
		SignalsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wealth_approval_signals_total",
			Help: "Total number of approval signals delivered, by signal name",
		}, []string{"signal"}),
		EngineErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wealth_engine_errors_total",
			Help: "Total number of failed calls to the workflow engine, by operation and error code",
		}, []string{"operation", "code"}),
		EngineLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wealth_engine_call_duration_seconds",
			Help:    "Latency of calls to the workflow engine in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementOpeningsStarted() {
	if m == nil {
		return
	}
	m.OpeningsStarted.Inc()
}

func (m *Metrics) IncrementSignal(signal string) {
	if m == nil {
		return
	}
	m.SignalsSent.WithLabelValues(signal).Inc()
}

func (m *Metrics) IncrementEngineError(operation, code string) {
	if m == nil {
		return
	}
	m.EngineErrors.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) ObserveEngineLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.EngineLatency.WithLabelValues(operation).Observe(seconds)
}
