package sched

import (
	"math/rand"
	"time"

	"strand/internal/trace"
)

// Worker is one scheduling thread: it owns a local deque and participates
// in stealing. Workers are created by the scheduler and run until shutdown.
type Worker struct {
	id    int
	s     *Scheduler
	local deque
	rng   *rand.Rand
}

func (w *Worker) loop() {
	defer w.s.wg.Done()
	for {
		t := w.find()
		if t == nil {
			if w.s.stopped.Load() {
				return
			}
			w.s.parkWorker(w)
			continue
		}
		w.run(t)
	}
}

// find looks for work: own deque first (LIFO), then a steal from the
// opposite end of a pseudo-randomly chosen peer, then the shared overflow
// queue. Returns nil when idle.
func (w *Worker) find() *Task {
	s := w.s
	if t := w.local.pop(); t != nil {
		s.queued.Add(-1)
		return t
	}
	if n := len(s.workers); n > 1 {
		start := w.rng.Intn(n)
		for i := 0; i < n; i++ {
			victim := s.workers[(start+i)%n]
			if victim == w {
				continue
			}
			if t := victim.local.steal(); t != nil {
				s.queued.Add(-1)
				s.stats.Steals.Add(1)
				if s.tracer.Level() >= trace.LevelVerbose {
					s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindSteal, Task: uint64(t.id), Worker: w.id})
				}
				return t
			}
		}
	}
	if t := s.overflow.pop(); t != nil {
		s.queued.Add(-1)
		s.stats.OverflowPop.Add(1)
		return t
	}
	return nil
}

func (w *Worker) run(t *Task) {
	s := w.s
	if t.cancelled.Load() {
		// Observed before the transition to Running: a task cancelled
		// before its first run never runs at all.
		s.finish(t, w.id, true, nil, ErrTaskCancelled)
		return
	}
	if !t.state.CompareAndSwap(uint32(StateRunnable), uint32(StateRunning)) {
		return
	}
	t.wake.Store(wakeIdle)

	t.worker = w
	out := t.poll(t)
	t.worker = nil
	s.stats.Polls.Add(1)

	switch out.Kind {
	case OutcomeDone:
		s.finish(t, w.id, false, out.Value, out.Err)
	case OutcomeYielded:
		s.stats.Yields.Add(1)
		if s.tracer.Level() >= trace.LevelVerbose {
			s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindYield, Task: uint64(t.id), Worker: w.id})
		}
		t.state.Store(uint32(StateRunnable))
		w.push(t)
	case OutcomeParked:
		s.stats.Parks.Add(1)
		if s.tracer.Level() >= trace.LevelVerbose {
			s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindPark, Task: uint64(t.id), Worker: w.id})
		}
		t.state.Store(uint32(StateSuspended))
		// A wake (or a cancel) may have landed while the body was
		// running; the state CAS arbitrates with concurrent wakers so
		// the task is requeued exactly once.
		if t.cancelled.Load() || t.wake.CompareAndSwap(wakeNotified, wakeIdle) {
			if t.state.CompareAndSwap(uint32(StateSuspended), uint32(StateRunnable)) {
				w.push(t)
			}
		}
	}
}

// push makes t runnable on this worker's local queue, spilling to the
// shared overflow queue when the deque is full.
func (w *Worker) push(t *Task) {
	w.s.queued.Add(1)
	if w.local.push(t) {
		w.s.unparkOne()
		return
	}
	w.s.queued.Add(-1)
	w.s.enqueue(t)
}
