// Package future implements the runtime's completion model: a write-once
// asynchronous value holder with a single producer (Promise) and any number
// of readers (Future). Suspension points in task bodies are always awaits
// on a Future.
package future

import (
	"io"
	"sync"

	"strand/internal/sched"
)

var (
	diagMu   sync.Mutex
	diagSink io.Writer
)

// SetDiagnosticSink routes fatal-assertion notes, normally to the process
// debug channel. Writes are best effort and failures are ignored; nil
// disables the sink.
func SetDiagnosticSink(w io.Writer) {
	diagMu.Lock()
	diagSink = w
	diagMu.Unlock()
}

func diagnose(msg string) {
	diagMu.Lock()
	w := diagSink
	diagMu.Unlock()
	if w == nil {
		return
	}
	_, _ = w.Write([]byte(msg + "\n")) //nolint:errcheck // best effort before the panic
}

// Promise is the producer half: the only entity allowed to complete its
// paired Future. It is invalid after the first completion; completing twice
// is a programming defect and a fatal assertion, not a recoverable error.
type Promise[T any] struct {
	f *Future[T]
}

// Future is the consumer half. It transitions Pending -> Ready exactly
// once; after that every read observes the identical value.
type Future[T any] struct {
	mu    sync.Mutex
	done  bool
	value T
	err   error
	subs  []sched.Waker
	fns   []func()
}

// NewPromise creates a paired producer and consumer. The Future starts
// Pending.
func NewPromise[T any]() (*Promise[T], *Future[T]) {
	f := &Future[T]{}
	return &Promise[T]{f: f}, f
}

// Completed returns an already-ready Future holding v.
func Completed[T any](v T) *Future[T] {
	return &Future[T]{done: true, value: v}
}

// Failed returns an already-ready Future holding err.
func Failed[T any](err error) *Future[T] {
	return &Future[T]{done: true, err: err}
}

// Complete transitions the paired Future to Ready with a value and wakes
// every subscribed waker. Panics if the Future is already Ready.
func (p *Promise[T]) Complete(v T) {
	p.f.resolve(v, nil)
}

// Fail transitions the paired Future to Ready with an error. Panics if the
// Future is already Ready.
func (p *Promise[T]) Fail(err error) {
	var zero T
	p.f.resolve(zero, err)
}

func (f *Future[T]) resolve(v T, err error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		const msg = "future: promise completed twice"
		diagnose(msg)
		panic(msg)
	}
	f.done = true
	f.value = v
	f.err = err
	subs := f.subs
	fns := f.fns
	f.subs = nil
	f.fns = nil
	f.mu.Unlock()

	for _, w := range subs {
		w.Wake()
	}
	for _, fn := range fns {
		fn()
	}
}

// Poll is the non-blocking readiness check. ok is false while Pending;
// once Ready it returns the same (value, err) forever.
func (f *Future[T]) Poll() (T, error, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.done {
		var zero T
		return zero, nil, false
	}
	return f.value, f.err, true
}

// Ready reports whether the Future has been completed.
func (f *Future[T]) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Subscribe registers a waker to be invoked on completion. If the Future is
// already Ready the waker fires immediately. Duplicate subscriptions are
// allowed; wakes are idempotent.
func (f *Future[T]) Subscribe(w sched.Waker) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		w.Wake()
		return
	}
	f.subs = append(f.subs, w)
	f.mu.Unlock()
}

// Await polls from inside a task body. When pending it subscribes the
// task's waker and reports ok=false; the body must then return a Parked
// outcome and re-poll on resume.
func (f *Future[T]) Await(t *sched.Task) (T, error, bool) {
	if v, err, ok := f.Poll(); ok {
		return v, err, true
	}
	f.Subscribe(t.Waker())
	var zero T
	return zero, nil, false
}

// onReady runs fn once the Future is Ready; immediately when it already is.
// fn runs on the resolving goroutine and must not block.
func (f *Future[T]) onReady(fn func()) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		fn()
		return
	}
	f.fns = append(f.fns, fn)
	f.mu.Unlock()
}
