package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/DioGolang/GoMonitor/pkg/logger"
	"github.com/DioGolang/GoMonitor/pkg/monitor"
)

const (
	DefaultJobName = "something"
	MaxJobs        = 5
)

var ErrInvalidJobs = errors.New("jobs must be between 1 and 5")

type WorkerConfig struct {
	Host     string
	AppName  string
	MinSleep time.Duration
	MaxSleep time.Duration
}

// Worker runs the example work: a work unit made of sequential jobs, each
// monitored with its own policy.
type Worker struct {
	policies *monitor.Policies
	logger   logger.Logger
	config   WorkerConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewWorker(policies *monitor.Policies, log logger.Logger, cfg WorkerConfig) *Worker {
	if cfg.MaxSleep < cfg.MinSleep {
		cfg.MaxSleep = cfg.MinSleep
	}
	return &Worker{
		policies: policies,
		logger:   log,
		config:   cfg,
		sleep:    sleepContext,
	}
}

func RandomJobs() int {
	return rand.IntN(MaxJobs) + 1
}

func (w *Worker) DoWork(ctx context.Context, workName string, jobs int) error {
	if jobs < 1 || jobs > MaxJobs {
		return ErrInvalidJobs
	}

	return monitor.Monitor(ctx, w.policies.Work(w.config.Host, w.config.AppName, workName), func(ctx context.Context) error {
		w.logger.Info(ctx, "Starting work",
			logger.String("work_name", workName),
			logger.Int("jobs", jobs),
		)
		for job := 0; job < jobs; job++ {
			if err := w.DoJob(ctx, job, jobs); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *Worker) DoJob(ctx context.Context, job, jobs int) error {
	w.logger.Info(ctx, "Working on job",
		logger.Int("job", job+1),
		logger.Int("jobs", jobs),
	)
	return monitor.Monitor(ctx, w.policies.Job(w.config.Host, w.config.AppName, DefaultJobName), func(ctx context.Context) error {
		return w.sleep(ctx, w.jobDuration())
	})
}

func (w *Worker) jobDuration() time.Duration {
	spread := w.config.MaxSleep - w.config.MinSleep
	if spread <= 0 {
		return w.config.MinSleep
	}
	return w.config.MinSleep + rand.N(spread)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
