// Package monitor wraps units of work with metrics that observe their entry,
// exit, duration and outcome.
//
// A metric instance is created per invocation and driven by Monitor (or by a
// Scope for callers that cannot hand over a closure). The exit hook runs on
// every path out of the work: normal return, returned error, panic and
// runtime.Goexit. Failures are observed, never swallowed or rewritten.
//
//	err := monitor.Monitor(ctx, policies.Job(host, app, "rebuild"), func(ctx context.Context) error {
//		return rebuild(ctx)
//	})
package monitor

import (
	"context"
	"errors"
	"fmt"
)

// ErrAborted is recorded when the work left its goroutine via runtime.Goexit.
var ErrAborted = errors.New("unit of work aborted without returning")

// PanicError is the failure recorded when the wrapped work panics.
// The panic itself is re-raised with its original value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unit of work panicked: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Monitor enters m, runs fn and exits m with fn's outcome.
// The returned error is exactly the one fn returned.
func Monitor(ctx context.Context, m Metric, fn func(ctx context.Context) error) (err error) {
	m.OnEnter()

	completed := false
	defer func() {
		if r := recover(); r != nil {
			m.OnExit(&PanicError{Value: r})
			panic(r)
		}
		if !completed {
			m.OnExit(ErrAborted)
			return
		}
		m.OnExit(outcome(ctx, err))
	}()

	err = fn(ctx)
	completed = true
	return err
}

// MonitorValue is Monitor for work that produces a value.
func MonitorValue[T any](ctx context.Context, m Metric, fn func(ctx context.Context) (T, error)) (T, error) {
	var v T
	err := Monitor(ctx, m, func(ctx context.Context) error {
		var err error
		v, err = fn(ctx)
		return err
	})
	return v, err
}

// Scope is the guard form of Monitor:
//
//	scope := monitor.Enter(ctx, metric)
//	defer scope.Exit(&err)
//	...
//	return scope.Done(err)
//
// Exit must be deferred directly so that it can observe a panic. Every
// return goes through Done; an Exit that was not preceded by Done means the
// goroutine left via runtime.Goexit and is recorded as ErrAborted.
type Scope struct {
	ctx       context.Context
	metric    Metric
	completed bool
}

func Enter(ctx context.Context, m Metric) *Scope {
	m.OnEnter()
	return &Scope{ctx: ctx, metric: m}
}

// Done marks the guarded block as returned and passes err through.
func (s *Scope) Done(err error) error {
	s.completed = true
	return err
}

func (s *Scope) Exit(errp *error) {
	if r := recover(); r != nil {
		s.metric.OnExit(&PanicError{Value: r})
		panic(r)
	}
	if !s.completed {
		s.metric.OnExit(ErrAborted)
		return
	}
	var err error
	if errp != nil {
		err = *errp
	}
	s.metric.OnExit(outcome(s.ctx, err))
}

// outcome treats a cancelled context as a failure even when the work returned nil.
func outcome(ctx context.Context, err error) error {
	if err != nil || ctx == nil {
		return err
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return nil
}
