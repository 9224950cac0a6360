// Package rt assembles the runtime: scheduler, timer driver, channel set
// and readiness poller behind one explicit object. There are no ambient
// globals; everything is reached through a *Runtime.
package rt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"strand/internal/bootstrap"
	"strand/internal/chanio"
	"strand/internal/future"
	"strand/internal/netpoll"
	"strand/internal/observ"
	"strand/internal/sched"
	"strand/internal/trace"
)

// Options configures runtime construction. The zero value is usable:
// default worker count, default grace, no tracing, channels established
// from the process environment.
type Options struct {
	// Workers is the scheduler worker count; 0 means GOMAXPROCS.
	Workers int
	// Grace bounds shutdown drain before force-cancel; 0 means the default.
	Grace time.Duration
	// Seed makes steal victim selection reproducible; 0 means time-based.
	Seed int64
	// Tracer receives runtime events; nil means off.
	Tracer trace.Tracer
	// Stats receives counters; nil allocates a private set.
	Stats *observ.Stats
	// Clock drives timers; nil means the real clock.
	Clock sched.Clock
	// Channels overrides platform bootstrap, mainly for tests and
	// in-process harnesses. nil runs bootstrap.Establish.
	Channels *chanio.Set
}

// Runtime owns every moving part of the async runtime. Lifecycle is
// New -> (running) -> Shutdown, exactly once.
type Runtime struct {
	sched  *sched.Scheduler
	timers *sched.Timers
	chans  *chanio.Set
	poller *netpoll.Poller
	tracer trace.Tracer
	stats  *observ.Stats

	driverDone chan struct{}
	shutdown   sync.Once
}

// New bootstraps the channel set (unless one is supplied), starts workers,
// the timer driver and the I/O driver goroutine. A bootstrap failure is
// fatal and returned before any task can run; it is reported once and
// never retried. On platforms without a readiness poller the runtime comes
// up without async channel I/O; timers and scheduling are unaffected.
func New(opts Options) (*Runtime, error) {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop()
	}
	if opts.Stats == nil {
		opts.Stats = observ.NewStats()
	}

	chans := opts.Channels
	if chans == nil {
		established, err := bootstrap.Establish()
		if err != nil {
			// No channel set came up, so the diagnostic can only reach
			// stderr, via the caller.
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		chans = established
	}
	// Fatal-assertion notes (double completion) go to the debug channel.
	future.SetDiagnosticSink(chans.DebugOut())

	r := &Runtime{
		chans:      chans,
		tracer:     opts.Tracer,
		stats:      opts.Stats,
		driverDone: make(chan struct{}),
	}
	r.sched = sched.New(sched.Config{
		Workers: opts.Workers,
		Grace:   opts.Grace,
		Tracer:  opts.Tracer,
		Stats:   opts.Stats,
		Seed:    opts.Seed,
	})
	r.timers = sched.NewTimers(opts.Clock, opts.Stats)

	poller, err := netpoll.New()
	switch {
	case err == nil:
		r.poller = poller
		go r.driveIO()
	case errors.Is(err, netpoll.ErrUnsupported):
		close(r.driverDone)
	default:
		r.timers.Stop()
		r.sched.Shutdown()
		werr := fmt.Errorf("readiness poller: %w", err)
		_, _ = chans.DebugOut().Write([]byte(werr.Error() + "\n")) //nolint:errcheck // best effort
		return nil, werr
	}
	return r, nil
}

// driveIO is the dedicated I/O driver loop: the only goroutine allowed to
// block in the poller.
func (r *Runtime) driveIO() {
	defer close(r.driverDone)
	for {
		_, err := r.poller.Wait(-1)
		if err == nil {
			continue
		}
		if errors.Is(err, netpoll.ErrClosed) {
			r.poller.Release()
			return
		}
		if r.tracer.Enabled() {
			r.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindShutdown, Worker: -1, Detail: "io driver: " + err.Error()})
		}
		r.poller.Release()
		return
	}
}

// Scheduler exposes the task scheduler.
func (r *Runtime) Scheduler() *sched.Scheduler { return r.sched }

// Timers exposes the timer driver.
func (r *Runtime) Timers() *sched.Timers { return r.timers }

// Channels exposes the process channel set.
func (r *Runtime) Channels() *chanio.Set { return r.chans }

// Stats exposes the runtime counters.
func (r *Runtime) Stats() *observ.Stats { return r.stats }

// Sleep returns a timer-backed future completing after delay.
func (r *Runtime) Sleep(delay time.Duration) *future.Future[struct{}] {
	return future.Sleep(r.timers, delay)
}

// Shutdown drains the scheduler (cancelling stragglers after the grace
// period), stops the timer driver and the I/O driver, then closes owned
// channel endpoints. Subsequent calls are no-ops.
func (r *Runtime) Shutdown() {
	r.shutdown.Do(func() {
		r.sched.Shutdown()
		r.timers.Stop()
		if r.poller != nil {
			r.poller.Close()
		}
		<-r.driverDone
		// Flush before the channels close: a stream tracer pointed at the
		// debug channel still has buffered events to land.
		_ = r.tracer.Flush() //nolint:errcheck // teardown
		_ = r.chans.Close()  //nolint:errcheck // teardown
	})
}

// Spawn creates a task from an arbitrary goroutine and returns a typed
// future for its result. The task's Done value must be a T (or nil for the
// zero value). A cancelled task fails the future with ErrTaskCancelled;
// spawning after shutdown began returns ErrShutdown.
func Spawn[T any](r *Runtime, poll sched.PollFn) (*future.Future[T], error) {
	p, f := future.NewPromise[T]()
	if _, err := r.sched.Spawn(poll, complete(p)); err != nil {
		return nil, err
	}
	return f, nil
}

// SpawnFrom creates a child task from within t's poll body; it lands on the
// spawning worker's local queue.
func SpawnFrom[T any](t *sched.Task, poll sched.PollFn) (*future.Future[T], error) {
	p, f := future.NewPromise[T]()
	if _, err := t.Spawn(poll, complete(p)); err != nil {
		return nil, err
	}
	return f, nil
}

func complete[T any](p *future.Promise[T]) func(any, error) {
	return func(v any, err error) {
		if err != nil {
			p.Fail(err)
			return
		}
		if v == nil {
			var zero T
			p.Complete(zero)
			return
		}
		tv, ok := v.(T)
		if !ok {
			p.Fail(fmt.Errorf("task produced %T, want %T", v, tv))
			return
		}
		p.Complete(tv)
	}
}
