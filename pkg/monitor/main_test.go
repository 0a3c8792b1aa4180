package monitor

import (
	"testing"

	"github.com/DioGolang/GoMonitor/pkg/metrics"
	"github.com/DioGolang/GoMonitor/pkg/metrics/metricstest"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRegistry(t *testing.T) (*prometheus.Registry, *metrics.Prometheus) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return reg, metrics.NewPrometheusMetrics(reg, "test")
}

func newPolicies(t *testing.T) (*prometheus.Registry, *Policies) {
	t.Helper()
	reg, m := newRegistry(t)
	p, err := NewPolicies(m)
	if err != nil {
		t.Fatalf("NewPolicies: %v", err)
	}
	return reg, p
}

var (
	sample       = metricstest.Value
	histogramSum = metricstest.HistogramSum
)
