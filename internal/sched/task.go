// Package sched implements the strand work-stealing scheduler: N worker
// goroutines cooperatively running M poll-driven tasks. Tasks suspend only
// at explicit points (awaiting a future, yielding); there is no preemption,
// so long CPU-bound bodies must yield or they starve their worker.
package sched

import (
	"errors"
	"sync/atomic"
)

// TaskID identifies a spawned task.
type TaskID uint64

// State describes task scheduling state. The only transitions are
// Runnable -> Running -> {Suspended, Runnable, Completed, Cancelled} and
// Suspended -> Runnable. Completed and Cancelled are terminal.
type State uint32

const (
	StateRunnable State = iota
	StateRunning
	StateSuspended
	StateCompleted
	StateCancelled
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrTaskCancelled is observed by a cancelled task at its next resume and
// propagated to its result future. It is a distinct kind so cancellation is
// never folded into a generic error.
var ErrTaskCancelled = errors.New("task cancelled")

// ErrShutdown is returned by Spawn once drain has begun.
var ErrShutdown = errors.New("scheduler shutting down")

// OutcomeKind reports how a poll iteration completed.
type OutcomeKind uint8

const (
	// OutcomeDone indicates the task reached its terminal result.
	OutcomeDone OutcomeKind = iota
	// OutcomeYielded indicates the task voluntarily yielded.
	OutcomeYielded
	// OutcomeParked indicates the task subscribed a waker and suspends.
	OutcomeParked
)

// Outcome describes the result of polling a task once.
type Outcome struct {
	Kind  OutcomeKind
	Value any
	Err   error
}

// Done builds a terminal outcome carrying the task's result.
func Done(value any, err error) Outcome {
	return Outcome{Kind: OutcomeDone, Value: value, Err: err}
}

// Yielded builds an outcome that requeues the task immediately.
func Yielded() Outcome { return Outcome{Kind: OutcomeYielded} }

// Parked builds an outcome for a task that registered a waker and suspends.
// The body must have subscribed the task's waker before returning it, or the
// task never resumes.
func Parked() Outcome { return Outcome{Kind: OutcomeParked} }

// PollFn is a task body: a resumable state machine polled by workers. The
// body keeps its own resume point and captured locals; each invocation runs
// until the next suspend point.
type PollFn func(t *Task) Outcome

const (
	wakeIdle uint32 = iota
	wakeNotified
)

// Task is a lightweight execution context scheduled by workers.
type Task struct {
	id   TaskID
	s    *Scheduler
	poll PollFn

	state     atomic.Uint32
	wake      atomic.Uint32
	cancelled atomic.Bool

	// worker executing the task right now; set and cleared by that worker
	// around poll, read only from within the body.
	worker *Worker

	// onDone delivers the terminal result exactly once. Called by the
	// worker that finished the task, never concurrently.
	onDone func(value any, err error)
}

// ID returns the task's identifier.
func (t *Task) ID() TaskID {
	if t == nil {
		return 0
	}
	return t.id
}

// State returns the task's current scheduling state.
func (t *Task) State() State {
	if t == nil {
		return StateCompleted
	}
	return State(t.state.Load())
}

// Cancelled reports whether cancellation has been requested. Bodies may
// check it at yield points to stop early.
func (t *Task) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

// Waker returns the capability that re-enqueues this task. Safe to invoke
// from any goroutine, redundantly, or after the task is terminal.
func (t *Task) Waker() Waker { return Waker{t: t} }

// Cancel flags the task and wakes it so the flag is observed promptly.
// A task that never started running terminates without running; a task
// suspended mid-await resumes straight into ErrTaskCancelled.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	st := State(t.state.Load())
	if st == StateCompleted || st == StateCancelled {
		return
	}
	t.cancelled.Store(true)
	t.Waker().Wake()
}

// Spawn creates a child task runnable on the same worker's local queue.
// Legal only from within this task's poll body.
func (t *Task) Spawn(poll PollFn, onDone func(any, error)) (*Task, error) {
	if t == nil || t.s == nil {
		return nil, ErrShutdown
	}
	return t.s.spawn(poll, onDone, t)
}

func (t *Task) terminal() bool {
	st := State(t.state.Load())
	return st == StateCompleted || st == StateCancelled
}
