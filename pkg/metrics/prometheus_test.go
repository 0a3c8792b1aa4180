package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/DioGolang/GoMonitor/pkg/metrics"
	"github.com/DioGolang/GoMonitor/pkg/metrics/metricstest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPrometheus(t *testing.T) (*prometheus.Registry, *metrics.Prometheus) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return reg, metrics.NewPrometheusMetrics(reg, "test")
}

func TestPrometheus_CounterGetOrCreate(t *testing.T) {
	reg, p := newPrometheus(t)

	first, err := p.Counter("job_called", "Number of times job was called", []string{"job_name", "status"})
	require.NoError(t, err)
	second, err := p.Counter("job_called", "Number of times job was called", []string{"job_name", "status"})
	require.NoError(t, err)

	first.Inc("x", "ok")
	second.Inc("x", "ok")

	assert.Equal(t, 2.0, metricstest.Value(t, reg, "job_called_total", "job_name", "x", "status", "ok"))
}

func TestPrometheus_SchemaMismatch(t *testing.T) {
	tests := []struct {
		name   string
		create func(p *metrics.Prometheus) error
	}{
		{"Should reject different label names", func(p *metrics.Prometheus) error {
			_, err := p.Gauge("in_progress", "", []string{"queue"})
			return err
		}},
		{"Should reject different label order", func(p *metrics.Prometheus) error {
			_, err := p.Gauge("in_progress", "", []string{"app_name", "host"})
			return err
		}},
		{"Should reject a different kind", func(p *metrics.Prometheus) error {
			_, err := p.Counter("in_progress", "", []string{"host", "app_name"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := newPrometheus(t)
			_, err := p.Gauge("in_progress", "In progress", []string{"host", "app_name"})
			require.NoError(t, err)

			assert.ErrorIs(t, tt.create(p), metrics.ErrSchemaMismatch)
		})
	}
}

func TestPrometheus_AdoptsAlreadyRegisteredCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	existing := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "work_latency",
		Help:    "Elapsed time per work",
		Buckets: prometheus.DefBuckets,
	}, []string{"work_name"})
	reg.MustRegister(existing)

	p := metrics.NewPrometheusMetrics(reg, "test")
	h, err := p.Histogram("work_latency", "Elapsed time per work", nil, []string{"work_name"})
	require.NoError(t, err)

	h.Observe(0.25, "w")
	existing.WithLabelValues("w").Observe(0.75)

	assert.Equal(t, 2.0, metricstest.Value(t, reg, "work_latency", "work_name", "w"))
	assert.InDelta(t, 1.0, metricstest.HistogramSum(t, reg, "work_latency", "work_name", "w"), 1e-9)
}

func TestPrometheus_InvalidName(t *testing.T) {
	_, p := newPrometheus(t)

	_, err := p.Counter("", "", nil)
	assert.ErrorIs(t, err, metrics.ErrInvalidName)
}

func TestPrometheus_ConcurrentGaugeUpdates(t *testing.T) {
	reg, p := newPrometheus(t)
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := p.Gauge("in_progress", "In progress", []string{"host"})
			if !assert.NoError(t, err) {
				return
			}
			g.Add(1, "h")
			g.Add(-1, "h")
			g.Add(1, "h")
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(n), metricstest.Value(t, reg, "in_progress", "host", "h"))
}

func TestPrometheus_Handler(t *testing.T) {
	_, p := newPrometheus(t)

	c, err := p.Counter("rabbitmq_messages_sent", "Number of messages sent", []string{"exchange", "status"})
	require.NoError(t, err)
	c.Inc("amq.direct", "success")
	p.ObserveHTTPRequestDuration(http.MethodGet, "/greet/{name}", "200", 0.01)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `rabbitmq_messages_sent_total{exchange="amq.direct",status="success"} 1`)
	assert.Contains(t, string(body), `app_http_duration_seconds_count{method="GET",path="/greet/{name}",service="test",status_code="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
