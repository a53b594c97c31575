package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus instrument the proxy exposes.
type Metrics struct {
	SessionsTotal    prometheus.Counter
	SessionsActive   prometheus.Gauge
	SessionsFailed   prometheus.Counter
	RunwayStatus     *prometheus.GaugeVec // 1 if up, 0 otherwise, per runway
	RunwayLatency    *prometheus.GaugeVec // seconds, per (runway, target)
	RunwayTransition *prometheus.CounterVec
	ProbeCycleTime   prometheus.Histogram
	DialAttempts     *prometheus.CounterVec // result in {"success","failure"}
}

// New creates and registers every instrument against the default
// Prometheus registry.
func New() *Metrics {
	dialBuckets := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0}

	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartproxy_sessions_total",
			Help: "Total client sessions accepted.",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "smartproxy_sessions_active",
			Help: "Client sessions currently relaying.",
		}),
		SessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartproxy_sessions_failed_total",
			Help: "Sessions that ended before any byte was forwarded.",
		}),
		RunwayStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartproxy_runway_up",
			Help: "1 if the runway's last probe succeeded, 0 otherwise.",
		}, []string{"interface", "upstream"}),
		RunwayLatency: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartproxy_runway_latency_seconds",
			Help: "Most recent probe latency for a runway against a target.",
		}, []string{"interface", "upstream", "target"}),
		RunwayTransition: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "smartproxy_runway_transitions_total",
			Help: "Status transitions observed per runway.",
		}, []string{"interface", "upstream", "from", "to"}),
		ProbeCycleTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartproxy_probe_cycle_seconds",
			Help:    "Wall-clock duration of a complete prober cycle.",
			Buckets: dialBuckets,
		}),
		DialAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "smartproxy_dial_attempts_total",
			Help: "Outbound dial attempts by outcome.",
		}, []string{"result"}),
	}
}

// ObserveSessionStarted, ObserveSessionActiveDelta, and
// ObserveSessionFailed implement control.Observer, letting Stats
// mirror its counters into Prometheus without control importing this
// package.
func (m *Metrics) ObserveSessionStarted() {
	m.SessionsTotal.Inc()
}

func (m *Metrics) ObserveSessionActiveDelta(delta int) {
	m.SessionsActive.Add(float64(delta))
}

func (m *Metrics) ObserveSessionFailed() {
	m.SessionsFailed.Inc()
}
