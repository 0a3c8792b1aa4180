package monitor

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyEntered = errors.New("metric already entered")
	ErrNotEntered     = errors.New("metric exited before it was entered")
	ErrAlreadyExited  = errors.New("metric already exited")
	ErrNotExited      = errors.New("elapsed read before metric exited")
)

// Metric is anything that can observe the entry and exit of a unit of work.
// An instance belongs to a single invocation and is never reused.
type Metric interface {
	OnEnter()
	OnExit(err error)
}

type State int

const (
	StateCreated State = iota
	StateEntered
	StateExited
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateEntered:
		return "entered"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LifecycleError is the panic value raised when a metric is driven out of order.
type LifecycleError struct {
	Op    string
	State State
	Err   error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("monitor: %s in state %s: %v", e.Op, e.State, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// Lifecycle holds the Created -> Entered -> Exited state shared by every metric.
// It is not safe for concurrent use; an instance is owned by one goroutine.
type Lifecycle struct {
	state State
	err   error
}

func (l *Lifecycle) Enter() {
	if l.state != StateCreated {
		panic(&LifecycleError{Op: "enter", State: l.state, Err: ErrAlreadyEntered})
	}
	l.state = StateEntered
}

func (l *Lifecycle) Exit(err error) {
	switch l.state {
	case StateCreated:
		panic(&LifecycleError{Op: "exit", State: l.state, Err: ErrNotEntered})
	case StateExited:
		panic(&LifecycleError{Op: "exit", State: l.state, Err: ErrAlreadyExited})
	}
	l.state = StateExited
	l.err = err
}

func (l *Lifecycle) OnEnter() { l.Enter() }

func (l *Lifecycle) OnExit(err error) { l.Exit(err) }

func (l *Lifecycle) State() State { return l.state }

// Err returns the failure recorded on exit, nil for a successful unit of work.
func (l *Lifecycle) Err() error { return l.err }

func (l *Lifecycle) Failed() bool { return l.err != nil }
