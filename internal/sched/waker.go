package sched

// Waker re-enqueues one specific suspended task. It is a value capability:
// copy it freely, invoke it from any goroutine. Redundant or late wakes are
// harmless no-ops.
//
// The wake flag is an atomic pair (idle/notified) consumed when the task
// next runs. The flag CAS deduplicates concurrent wakes; the state CAS
// arbitrates between a waker and the owning worker racing at park time, so
// a task is present in at most one run queue at any instant.
type Waker struct {
	t *Task
}

// Wake marks the task notified and, if it is suspended, re-enqueues it.
//
// If the task is currently running, the notification is recorded and the
// worker requeues the task itself when the body parks — this closes the
// window where a future completes between the body subscribing the waker
// and the worker marking the task suspended.
func (w Waker) Wake() {
	t := w.t
	if t == nil || t.terminal() {
		return
	}
	if !t.wake.CompareAndSwap(wakeIdle, wakeNotified) {
		return
	}
	if t.state.CompareAndSwap(uint32(StateSuspended), uint32(StateRunnable)) {
		t.s.enqueue(t)
	}
}

// IsZero reports whether the waker is unbound.
func (w Waker) IsZero() bool { return w.t == nil }

// TaskID returns the identifier of the task this waker targets.
func (w Waker) TaskID() TaskID { return w.t.ID() }
