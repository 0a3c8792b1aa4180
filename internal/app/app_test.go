package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DioGolang/GoMonitor/internal/infra/event"
	"github.com/DioGolang/GoMonitor/pkg/logger"
	"github.com/DioGolang/GoMonitor/pkg/metrics"
	"github.com/DioGolang/GoMonitor/pkg/metrics/metricstest"
	"github.com/DioGolang/GoMonitor/pkg/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestWorker(t *testing.T) (*prometheus.Registry, *Worker, *int32) {
	t.Helper()
	reg := prometheus.NewRegistry()
	policies, err := monitor.NewPolicies(metrics.NewPrometheusMetrics(reg, "test"))
	require.NoError(t, err)

	w := NewWorker(policies, logger.NewNop(), WorkerConfig{
		Host:     "h",
		AppName:  "a",
		MinSleep: time.Millisecond,
		MaxSleep: 2 * time.Millisecond,
	})
	var sleeps int32
	w.sleep = func(ctx context.Context, d time.Duration) error {
		atomic.AddInt32(&sleeps, 1)
		return sleepContext(ctx, d)
	}
	return reg, w, &sleeps
}

var (
	workLabels = []string{"host", "h", "app_name", "a", "work_name", "rebuild"}
	jobLabels  = []string{"host", "h", "app_name", "a", "job_name", DefaultJobName}
)

func TestWorker_DoWork(t *testing.T) {
	reg, w, sleeps := newTestWorker(t)

	require.NoError(t, w.DoWork(context.Background(), "rebuild", 3))

	assert.Equal(t, int32(3), atomic.LoadInt32(sleeps))
	assert.Equal(t, 1.0, metricstest.Value(t, reg, "work_called_total", append(workLabels, "status", "ok")...))
	assert.Equal(t, 3.0, metricstest.Value(t, reg, "job_called_total", append(jobLabels, "status", "ok")...))
	assert.Equal(t, 3.0, metricstest.Value(t, reg, "job_latency", jobLabels...))
	assert.Equal(t, 0.0, metricstest.Value(t, reg, "work_in_progress", workLabels...))
	assert.GreaterOrEqual(t,
		metricstest.HistogramSum(t, reg, "work_latency", workLabels...),
		metricstest.HistogramSum(t, reg, "job_latency", jobLabels...))
}

func TestWorker_DoWorkCancelled(t *testing.T) {
	reg, w, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.DoWork(ctx, "rebuild", 2)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1.0, metricstest.Value(t, reg, "work_called_total", append(workLabels, "status", "error")...))
	assert.Equal(t, 1.0, metricstest.Value(t, reg, "job_called_total", append(jobLabels, "status", "error")...))
	assert.Equal(t, 0.0, metricstest.Value(t, reg, "job_in_progress", jobLabels...))
}

func TestWorker_FailingJobFailsWork(t *testing.T) {
	reg, w, _ := newTestWorker(t)
	cause := errors.New("job crashed")
	calls := 0
	w.sleep = func(context.Context, time.Duration) error {
		calls++
		if calls == 2 {
			return cause
		}
		return nil
	}

	err := w.DoWork(context.Background(), "rebuild", 4)

	assert.Same(t, cause, err)
	assert.Equal(t, 2, calls, "jobs after the failing one do not run")
	assert.Equal(t, 1.0, metricstest.Value(t, reg, "job_called_total", append(jobLabels, "status", "ok")...))
	assert.Equal(t, 1.0, metricstest.Value(t, reg, "job_called_total", append(jobLabels, "status", "error")...))
	assert.Equal(t, 1.0, metricstest.Value(t, reg, "work_called_total", append(workLabels, "status", "error")...))
}

func TestWorker_InvalidJobs(t *testing.T) {
	reg, w, _ := newTestWorker(t)

	assert.ErrorIs(t, w.DoWork(context.Background(), "rebuild", 0), ErrInvalidJobs)
	assert.ErrorIs(t, w.DoWork(context.Background(), "rebuild", MaxJobs+1), ErrInvalidJobs)
	assert.Equal(t, 0.0, metricstest.Value(t, reg, "work_latency", workLabels...))
}

func TestRandomJobs(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := RandomJobs()
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, MaxJobs)
	}
}

func TestWorker_JobDurationWithinRange(t *testing.T) {
	_, w, _ := newTestWorker(t)
	w.config.MinSleep = 500 * time.Millisecond
	w.config.MaxSleep = 2 * time.Second

	for i := 0; i < 100; i++ {
		d := w.jobDuration()
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.Less(t, d, 2*time.Second)
	}
}

func TestWorkRequestHandler(t *testing.T) {
	reg, w, _ := newTestWorker(t)
	h := WorkRequestHandler(w)

	tests := []struct {
		name        string
		body        string
		permanent   bool
		expectError bool
	}{
		{"Should run a valid request", `{"work_name":"rebuild","jobs":2}`, false, false},
		{"Should pick random jobs when omitted", `{"work_name":"rebuild"}`, false, false},
		{"Should reject invalid json", `{`, true, true},
		{"Should reject a missing work name", `{"jobs":1}`, true, true},
		{"Should reject too many jobs", `{"work_name":"rebuild","jobs":9}`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h(context.Background(), []byte(tt.body), nil)
			if !tt.expectError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.permanent, errors.Is(err, event.ErrPermanent))
		})
	}

	assert.Equal(t, 2.0, metricstest.Value(t, reg, "work_called_total", append(workLabels, "status", "ok")...))
}

func TestHeartbeat(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		Heartbeat(ctx, logger.NewFromZap(zap.New(core)), 2*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Tick...").Len() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, 1, logs.FilterMessage("Heartbeat stopped").Len())
}
