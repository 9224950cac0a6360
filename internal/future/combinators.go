package future

import (
	"errors"
	"sync/atomic"
)

// ErrEmptyRace is the result of racing zero futures, which could otherwise
// never resolve.
var ErrEmptyRace = errors.New("race over no futures")

// ErrTimedOut is delivered by Timeout when the timer wins the race.
var ErrTimedOut = errors.New("timed out")

// Map returns a Future holding fn applied to the eventual value. Errors
// pass through untransformed. fn runs on the resolving goroutine.
func Map[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	p, out := NewPromise[U]()
	f.onReady(func() {
		v, err, _ := f.Poll()
		if err != nil {
			p.Fail(err)
			return
		}
		p.Complete(fn(v))
	})
	return out
}

// Then chains sequentially: once f is ready, fn produces the next Future
// and the result adopts its outcome. Errors short-circuit.
func Then[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	p, out := NewPromise[U]()
	f.onReady(func() {
		v, err, _ := f.Poll()
		if err != nil {
			p.Fail(err)
			return
		}
		next := fn(v)
		if next == nil {
			p.Fail(errors.New("then: nil future"))
			return
		}
		next.onReady(func() {
			nv, nerr, _ := next.Poll()
			if nerr != nil {
				p.Fail(nerr)
				return
			}
			p.Complete(nv)
		})
	})
	return out
}

// Race resolves with the first future to complete, value or error. Losers
// are left running; their completions are discarded.
func Race[T any](futs ...*Future[T]) *Future[T] {
	if len(futs) == 0 {
		return Failed[T](ErrEmptyRace)
	}
	p, out := NewPromise[T]()
	var won atomic.Bool
	for _, f := range futs {
		f := f
		f.onReady(func() {
			if !won.CompareAndSwap(false, true) {
				return
			}
			v, err, _ := f.Poll()
			if err != nil {
				p.Fail(err)
				return
			}
			p.Complete(v)
		})
	}
	return out
}

// JoinAll waits for every input and resolves with their values in input
// order, regardless of completion order. If any input failed, the join
// fails with the first error by input order once all inputs completed.
func JoinAll[T any](futs []*Future[T]) *Future[[]T] {
	p, out := NewPromise[[]T]()
	n := len(futs)
	if n == 0 {
		p.Complete(nil)
		return out
	}
	results := make([]T, n)
	errs := make([]error, n)
	var remaining atomic.Int64
	remaining.Store(int64(n))
	for i, f := range futs {
		i, f := i, f
		f.onReady(func() {
			results[i], errs[i], _ = f.Poll()
			if remaining.Add(-1) != 0 {
				return
			}
			for _, err := range errs {
				if err != nil {
					p.Fail(err)
					return
				}
			}
			p.Complete(results)
		})
	}
	return out
}
