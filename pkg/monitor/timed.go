package monitor

import "time"

// Clock returns readings that carry a monotonic component. time.Now does.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

var SystemClock Clock = ClockFunc(time.Now)

// Timer is a Lifecycle that also captures start and stop readings.
type Timer struct {
	Lifecycle
	clock Clock
	start time.Time
	stop  time.Time
}

func NewTimer(clock Clock) *Timer {
	if clock == nil {
		clock = SystemClock
	}
	return &Timer{clock: clock}
}

func (t *Timer) OnEnter() {
	t.Enter()
	t.start = t.now()
}

func (t *Timer) OnExit(err error) {
	t.Exit(err)
	t.stop = t.now()
}

// Elapsed is the monotonic duration between enter and exit.
// It panics with ErrNotExited when read before exit.
func (t *Timer) Elapsed() time.Duration {
	if t.State() != StateExited {
		panic(&LifecycleError{Op: "elapsed", State: t.State(), Err: ErrNotExited})
	}
	d := t.stop.Sub(t.start)
	if d < 0 {
		return 0
	}
	return d
}

func (t *Timer) now() time.Time {
	if t.clock == nil {
		return SystemClock.Now()
	}
	return t.clock.Now()
}
