package future

import (
	"time"

	"strand/internal/sched"
)

// Sleep returns a Future completing after delay, backed by the runtime
// timer driver.
func Sleep(td *sched.Timers, delay time.Duration) *Future[struct{}] {
	p, f := NewPromise[struct{}]()
	td.Arm(delay, func() { p.Complete(struct{}{}) })
	return f
}

// Timeout races f against a timer. If the timer wins, the result fails
// with ErrTimedOut; f itself keeps running and its completion is discarded.
func Timeout[T any](td *sched.Timers, d time.Duration, f *Future[T]) *Future[T] {
	deadline := Map(Sleep(td, d), func(struct{}) T {
		var zero T
		return zero
	})
	p, out := NewPromise[T]()
	r := Race(f, deadline)
	r.onReady(func() {
		v, err, _ := r.Poll()
		if err != nil {
			p.Fail(err)
			return
		}
		// Distinguish which arm won: if f is ready, its value is
		// authoritative even when the timer fired in the same instant.
		if fv, ferr, ok := f.Poll(); ok {
			if ferr != nil {
				p.Fail(ferr)
				return
			}
			p.Complete(fv)
			return
		}
		_ = v
		p.Fail(ErrTimedOut)
	})
	return out
}
