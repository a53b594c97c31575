package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

// New registers every instrument against the default Prometheus
// registry, which rejects a second registration of the same names, so
// the tests share one instance.
var testMetrics = New()

func TestRunwayStatusGaugeVecTracksLabels(t *testing.T) {
	m := testMetrics

	m.RunwayStatus.WithLabelValues("eth0", "").Set(1)
	m.RunwayStatus.WithLabelValues("eth0", "10.0.0.1:8080").Set(0)

	var metric dto.Metric
	if err := m.RunwayStatus.WithLabelValues("eth0", "").Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.GetGauge().GetValue() != 1 {
		t.Fatalf("expected direct runway gauge to be 1, got %v", metric.GetGauge().GetValue())
	}
}

func TestSessionCountersIndependentOfRunwayLabels(t *testing.T) {
	m := testMetrics
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
	m.SessionsActive.Dec()
	m.SessionsFailed.Inc()

	var metric dto.Metric
	if err := m.SessionsTotal.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.GetCounter().GetValue() != 1 {
		t.Fatalf("expected sessions_total to be 1, got %v", metric.GetCounter().GetValue())
	}
}
