// Package metricstest reads series back out of a prometheus.Gatherer in tests.
package metricstest

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Value returns the value of the series whose labels are exactly the given
// key/value pairs. Counters and gauges report their value, histograms their
// sample count. A missing series reads as zero.
func Value(tb testing.TB, g prometheus.Gatherer, name string, pairs ...string) float64 {
	tb.Helper()
	m := Find(tb, g, name, pairs...)
	switch {
	case m == nil:
		return 0
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Histogram != nil:
		return float64(m.Histogram.GetSampleCount())
	}
	return 0
}

func HistogramSum(tb testing.TB, g prometheus.Gatherer, name string, pairs ...string) float64 {
	tb.Helper()
	m := Find(tb, g, name, pairs...)
	if m == nil || m.Histogram == nil {
		return 0
	}
	return m.Histogram.GetSampleSum()
}

func Find(tb testing.TB, g prometheus.Gatherer, name string, pairs ...string) *dto.Metric {
	tb.Helper()
	if len(pairs)%2 != 0 {
		tb.Fatalf("metricstest: odd number of label pairs for %s", name)
	}
	families, err := g.Gather()
	if err != nil {
		tb.Fatalf("metricstest: gather: %v", err)
	}
	want := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		want[pairs[i]] = pairs[i+1]
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m.GetLabel(), want) {
				return m
			}
		}
	}
	return nil
}

func matches(labels []*dto.LabelPair, want map[string]string) bool {
	if len(labels) != len(want) {
		return false
	}
	for _, l := range labels {
		if v, ok := want[l.GetName()]; !ok || v != l.GetValue() {
			return false
		}
	}
	return true
}
