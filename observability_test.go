package flagcore

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPrometheusObservabilityClientIncrementCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := NewPrometheusObservabilityClient(reg)

	client.IncrementCounter("gate_checks", map[string]string{"result": "pass"})
	client.IncrementCounter("gate_checks", map[string]string{"result": "pass"})

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := findMetric(metrics, "flagcore_gate_checks")
	if found == nil {
		t.Fatalf("expected flagcore_gate_checks to be registered")
	}
	if got := found.Metric[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected counter value 2, got %v", got)
	}
}

func TestPrometheusObservabilityClientObserveGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := NewPrometheusObservabilityClient(reg)

	client.ObserveGauge("store_gates", 5, nil)
	client.ObserveGauge("store_gates", 9, nil)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := findMetric(metrics, "flagcore_store_gates")
	if found == nil {
		t.Fatalf("expected flagcore_store_gates to be registered")
	}
	if got := found.Metric[0].GetGauge().GetValue(); got != 9 {
		t.Fatalf("expected gauge to reflect the latest observation, got %v", got)
	}
}

func findMetric(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestNopObservabilityClientDoesNotPanic(t *testing.T) {
	var c NopObservabilityClient
	c.IncrementCounter("x", nil)
	c.ObserveGauge("x", 1, nil)
	c.ObserveDistribution("x", 1, nil)
}
