package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DioGolang/GoMonitor/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMetric_SleepingWork(t *testing.T) {
	reg, policies := newPolicies(t)
	labels := []string{"host", "h", "app_name", "a", "job_name", "x"}
	const sleep = 20 * time.Millisecond

	assert.Equal(t, float64(0), sample(t, reg, "job_in_progress", labels...))

	err := Monitor(context.Background(), policies.Job("h", "a", "x"), func(ctx context.Context) error {
		assert.Equal(t, float64(1), sample(t, reg, "job_in_progress", labels...))
		time.Sleep(sleep)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, float64(0), sample(t, reg, "job_in_progress", labels...))
	assert.Equal(t, float64(1), sample(t, reg, "job_called_total", append(labels, "status", "ok")...))
	assert.Equal(t, float64(0), sample(t, reg, "job_called_total", append(labels, "status", "error")...))
	assert.Equal(t, float64(1), sample(t, reg, "job_latency", labels...))
	assert.GreaterOrEqual(t, histogramSum(t, reg, "job_latency", labels...), sleep.Seconds())
}

func TestWorkMetric_FailingWork(t *testing.T) {
	reg, policies := newPolicies(t)
	labels := []string{"host", "h", "app_name", "a", "work_name", "y"}
	cause := errors.New("work failed")

	err := Monitor(context.Background(), policies.Work("h", "a", "y"), func(ctx context.Context) error {
		return cause
	})

	assert.Same(t, cause, err)
	assert.Equal(t, float64(1), sample(t, reg, "work_called_total", append(labels, "status", "error")...))
	assert.Equal(t, float64(0), sample(t, reg, "work_called_total", append(labels, "status", "ok")...))
	assert.Equal(t, float64(1), sample(t, reg, "work_latency", labels...))
	assert.Equal(t, float64(0), sample(t, reg, "work_in_progress", labels...))
}

func TestMessageMetrics_StatusVocabulary(t *testing.T) {
	reg, policies := newPolicies(t)
	cause := errors.New("rejected")

	tests := []struct {
		name    string
		metric  func() Metric
		counter string
		labels  []string
		ok      string
		failed  string
	}{
		{
			name:    "incoming",
			metric:  func() Metric { return policies.IncomingMessage("h", "a", "q", "ex", "rk") },
			counter: "rabbitmq_messages_received_total",
			labels:  []string{"host", "h", "app_name", "a", "queue", "q", "exchange", "ex", "routing_key", "rk"},
			ok:      "ack",
			failed:  "nack",
		},
		{
			name:    "outgoing",
			metric:  func() Metric { return policies.OutgoingMessage("h", "a", "ex", "") },
			counter: "rabbitmq_messages_sent_total",
			labels:  []string{"host", "h", "app_name", "a", "exchange", "ex", "routing_key", ""},
			ok:      "success",
			failed:  "failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Monitor(context.Background(), tt.metric(), func(context.Context) error { return nil }))
			require.Error(t, Monitor(context.Background(), tt.metric(), func(context.Context) error { return cause }))

			assert.Equal(t, float64(1), sample(t, reg, tt.counter, append(tt.labels, "status", tt.ok)...))
			assert.Equal(t, float64(1), sample(t, reg, tt.counter, append(tt.labels, "status", tt.failed)...))
		})
	}
}

func TestLabeledMetric_MisuseDoesNotTouchInstruments(t *testing.T) {
	reg, policies := newPolicies(t)
	labels := []string{"host", "h", "app_name", "a", "job_name", "x"}

	m := policies.Job("h", "a", "x")
	lerr := lifecyclePanic(t, func() { m.OnExit(nil) })
	assert.ErrorIs(t, lerr, ErrNotEntered)
	assert.Equal(t, float64(0), sample(t, reg, "job_called_total", append(labels, "status", "ok")...))
	assert.Equal(t, float64(0), sample(t, reg, "job_in_progress", labels...))

	m.OnEnter()
	lerr = lifecyclePanic(t, func() { m.OnEnter() })
	assert.ErrorIs(t, lerr, ErrAlreadyEntered)
	assert.Equal(t, float64(1), sample(t, reg, "job_in_progress", labels...))

	m.OnExit(nil)
	lerr = lifecyclePanic(t, func() { m.OnExit(nil) })
	assert.ErrorIs(t, lerr, ErrAlreadyExited)
	assert.Equal(t, float64(1), sample(t, reg, "job_called_total", append(labels, "status", "ok")...))
	assert.Equal(t, float64(0), sample(t, reg, "job_in_progress", labels...))
}

func TestPolicy_LabelArity(t *testing.T) {
	_, m := newRegistry(t)
	p, err := NewPolicy(m, JobSchema)
	require.NoError(t, err)

	_, err = p.Metric("h", "a")
	assert.ErrorIs(t, err, ErrLabelArity)

	lm, err := p.Metric("", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", ""}, lm.Labels())
}

func TestPolicy_IdempotentRegistration(t *testing.T) {
	reg, m := newRegistry(t)

	first, err := NewPolicy(m, WorkSchema)
	require.NoError(t, err)
	second, err := NewPolicy(m, WorkSchema)
	require.NoError(t, err)

	labels := []string{"host", "h", "app_name", "a", "work_name", "w"}
	for _, p := range []*Policy{first, second} {
		lm, err := p.Metric("h", "a", "w")
		require.NoError(t, err)
		require.NoError(t, Monitor(context.Background(), lm, func(context.Context) error { return nil }))
	}

	assert.Equal(t, float64(2), sample(t, reg, "work_called_total", append(labels, "status", "ok")...))
}

func TestPolicy_SchemaMismatch(t *testing.T) {
	_, m := newRegistry(t)

	_, err := m.Gauge("job_in_progress", "conflicting gauge", []string{"host"})
	require.NoError(t, err)

	_, err = NewPolicy(m, JobSchema)
	assert.ErrorIs(t, err, metrics.ErrSchemaMismatch)
}

func TestPolicy_InvalidSchema(t *testing.T) {
	_, m := newRegistry(t)

	tests := []struct {
		name   string
		schema Schema
	}{
		{"Should reject missing instrument names", Schema{Name: "bad", Success: "ok", Failure: "error"}},
		{"Should reject identical statuses", func() Schema { s := JobSchema; s.Failure = s.Success; return s }()},
		{"Should reject a label named like the status", func() Schema {
			s := JobSchema
			s.Labels = []string{"host", "status"}
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(m, tt.schema)
			assert.Error(t, err)
		})
	}
}

func TestPolicy_WithClock(t *testing.T) {
	reg, m := newRegistry(t)
	base := time.Now()
	p, err := NewPolicy(m, JobSchema, WithClock(&stepClock{readings: []time.Time{base, base.Add(3 * time.Second)}}))
	require.NoError(t, err)

	lm, err := p.Metric("h", "a", "clocked")
	require.NoError(t, err)
	require.NoError(t, Monitor(context.Background(), lm, func(context.Context) error { return nil }))

	assert.Equal(t, 3*time.Second, lm.Elapsed())
	assert.Equal(t, "ok", lm.Status())
	assert.InDelta(t, 3.0, histogramSum(t, reg, "job_latency", "host", "h", "app_name", "a", "job_name", "clocked"), 1e-9)
}
