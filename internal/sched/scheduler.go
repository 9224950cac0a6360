package sched

import (
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"strand/internal/observ"
	"strand/internal/trace"
)

// DefaultGrace bounds how long Shutdown waits for in-flight tasks before
// force-cancelling them.
const DefaultGrace = 5 * time.Second

// Config configures scheduler behavior.
type Config struct {
	// Workers is the number of worker goroutines; defaults to GOMAXPROCS.
	Workers int
	// Grace is the drain deadline before Shutdown force-cancels.
	Grace time.Duration
	// Tracer receives scheduling events; nil means off.
	Tracer trace.Tracer
	// Stats receives counters; nil allocates a private set.
	Stats *observ.Stats
	// Seed seeds the per-worker steal RNGs for reproducible runs; 0 picks
	// a time-based seed.
	Seed int64
}

// Scheduler owns all workers and the shared overflow queue. It is an
// explicit runtime object: construct with New, pass by reference, tear down
// with Shutdown exactly once. There are no ambient globals.
type Scheduler struct {
	cfg    Config
	tracer trace.Tracer
	stats  *observ.Stats

	workers  []*Worker
	overflow overflowQueue

	// queued approximates the number of tasks sitting in run queues; it
	// gates worker parking.
	queued atomic.Int64

	mu     sync.Mutex
	tasks  map[TaskID]*Task
	nextID TaskID

	stopping    atomic.Bool // spawns refused
	stopped     atomic.Bool // workers exit when idle
	drained     chan struct{}
	drainedOnce sync.Once

	parkMu sync.Mutex
	parked *sync.Cond
	idlers int

	wg sync.WaitGroup
}

// New constructs a scheduler and starts its workers.
func New(cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Tracer == nil {
		cfg.Tracer = trace.Nop()
	}
	if cfg.Stats == nil {
		cfg.Stats = observ.NewStats()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Scheduler{
		cfg:     cfg,
		tracer:  cfg.Tracer,
		stats:   cfg.Stats,
		tasks:   make(map[TaskID]*Task),
		drained: make(chan struct{}),
	}
	s.parked = sync.NewCond(&s.parkMu)
	s.workers = make([]*Worker, cfg.Workers)
	for i := range s.workers {
		s.workers[i] = &Worker{
			id:  i,
			s:   s,
			rng: rand.New(rand.NewSource(seed + int64(i))), //nolint:gosec // steal victim selection, not crypto
		}
	}
	s.wg.Add(len(s.workers))
	for _, w := range s.workers {
		go w.loop()
	}
	return s
}

// Workers returns the number of worker goroutines.
func (s *Scheduler) Workers() int { return len(s.workers) }

// Stats returns the scheduler's counter set.
func (s *Scheduler) Stats() *observ.Stats { return s.stats }

// Spawn creates a task from a non-worker context. The task lands on the
// shared overflow queue; onDone (may be nil) receives the terminal result.
// Fails with ErrShutdown once drain has begun.
func (s *Scheduler) Spawn(poll PollFn, onDone func(any, error)) (*Task, error) {
	return s.spawn(poll, onDone, nil)
}

func (s *Scheduler) spawn(poll PollFn, onDone func(any, error), parent *Task) (*Task, error) {
	if poll == nil {
		panic("sched: spawn with nil poll body")
	}
	s.mu.Lock()
	if s.stopping.Load() {
		s.mu.Unlock()
		s.stats.Rejected.Add(1)
		return nil, ErrShutdown
	}
	s.nextID++
	t := &Task{
		id:     s.nextID,
		s:      s,
		poll:   poll,
		onDone: onDone,
	}
	// Pre-notify so stray wakes before the first run are no-ops.
	t.wake.Store(wakeNotified)
	s.tasks[t.id] = t
	s.mu.Unlock()

	s.stats.Spawned.Add(1)
	if s.tracer.Enabled() {
		s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindSpawn, Task: uint64(t.id), Worker: -1})
	}
	if parent != nil && parent.worker != nil {
		parent.worker.push(t)
	} else {
		s.enqueue(t)
	}
	return t, nil
}

// enqueue makes t runnable via the shared overflow queue. Used for wakes
// and spawns from non-worker contexts.
func (s *Scheduler) enqueue(t *Task) {
	s.queued.Add(1)
	s.overflow.push(t)
	s.stats.OverflowPush.Add(1)
	s.stats.Wakes.Add(1)
	if s.tracer.Level() >= trace.LevelVerbose {
		s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindWake, Task: uint64(t.id), Worker: -1})
	}
	s.unparkOne()
}

func (s *Scheduler) finish(t *Task, worker int, cancelled bool, value any, err error) {
	if cancelled {
		t.state.Store(uint32(StateCancelled))
		s.stats.Cancelled.Add(1)
	} else {
		t.state.Store(uint32(StateCompleted))
		s.stats.Completed.Add(1)
	}
	if s.tracer.Enabled() {
		detail := ""
		if cancelled {
			detail = "cancelled"
		} else if err != nil {
			detail = "err=" + err.Error()
		}
		s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindDone, Task: uint64(t.id), Worker: worker, Detail: detail})
	}
	if t.onDone != nil {
		t.onDone(value, err)
	}
	s.mu.Lock()
	delete(s.tasks, t.id)
	empty := len(s.tasks) == 0
	stopping := s.stopping.Load()
	s.mu.Unlock()
	if stopping && empty {
		s.closeDrained()
	}
}

func (s *Scheduler) closeDrained() {
	s.drainedOnce.Do(func() { close(s.drained) })
}

// Live returns the number of tasks not yet terminal.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// QueuedApprox returns the approximate run-queue depth.
func (s *Scheduler) QueuedApprox() int64 { return s.queued.Load() }

func (s *Scheduler) parkWorker(w *Worker) {
	s.stats.WorkerParks.Add(1)
	if s.tracer.Level() >= trace.LevelVerbose {
		s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindWorkerPark, Worker: w.id})
	}
	s.parkMu.Lock()
	s.idlers++
	for !s.stopped.Load() && s.queued.Load() <= 0 {
		s.parked.Wait()
	}
	s.idlers--
	s.parkMu.Unlock()
}

func (s *Scheduler) unparkOne() {
	s.parkMu.Lock()
	if s.idlers > 0 {
		s.stats.WorkerUnparks.Add(1)
		s.parked.Signal()
	}
	s.parkMu.Unlock()
}

// Shutdown drains then cancels: it stops accepting spawns, waits for
// in-flight tasks up to the grace period, force-cancels the remainder
// (their futures observe ErrTaskCancelled), then stops all workers.
// Subsequent calls return immediately.
func (s *Scheduler) Shutdown() {
	if !s.stopping.CompareAndSwap(false, true) {
		return
	}
	if s.tracer.Enabled() {
		s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindShutdown, Worker: -1, Detail: "drain"})
	}
	s.mu.Lock()
	empty := len(s.tasks) == 0
	s.mu.Unlock()
	if empty {
		s.closeDrained()
	}

	grace := time.NewTimer(s.cfg.Grace)
	defer grace.Stop()
	select {
	case <-s.drained:
	case <-grace.C:
		if s.tracer.Enabled() {
			s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindShutdown, Worker: -1, Detail: "force-cancel"})
		}
		s.mu.Lock()
		remaining := make([]*Task, 0, len(s.tasks))
		for _, t := range s.tasks {
			remaining = append(remaining, t)
		}
		s.mu.Unlock()
		for _, t := range remaining {
			t.Cancel()
		}
		<-s.drained
	}

	s.stopped.Store(true)
	s.parkMu.Lock()
	s.parked.Broadcast()
	s.parkMu.Unlock()
	s.wg.Wait()
	if s.tracer.Enabled() {
		s.tracer.Emit(&trace.Event{Time: time.Now(), Kind: trace.KindShutdown, Worker: -1, Detail: "stopped"})
	}
}
