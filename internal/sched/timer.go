package sched

import (
	"container/heap"
	"math"
	"sync"
	"time"

	"fortio.org/safecast"

	"strand/internal/observ"
)

// TimerID identifies a scheduled timer.
type TimerID uint64

type timer struct {
	id         TimerID
	deadlineMs uint64
	fire       func()
	cancelled  bool
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadlineMs == h[j].deadlineMs {
		return h[i].id < h[j].id
	}
	return h[i].deadlineMs < h[j].deadlineMs
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	t, ok := x.(*timer)
	if !ok || t == nil {
		return
	}
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	if n == 0 {
		return (*timer)(nil)
	}
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Timers is the runtime's timer driver: a deadline heap serviced by one
// goroutine. Timer-backed futures are the only timeout primitive in the
// runtime; timeouts are races against them, never kernel timeouts.
type Timers struct {
	clock Clock
	stats *observ.Stats

	mu     sync.Mutex
	heap   timerHeap
	byID   map[TimerID]*timer
	nextID TimerID

	kick chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewTimers starts a timer driver on the given clock. Stats may be nil.
func NewTimers(clock Clock, stats *observ.Stats) *Timers {
	if clock == nil {
		clock = NewRealClock()
	}
	if stats == nil {
		stats = observ.NewStats()
	}
	td := &Timers{
		clock: clock,
		stats: stats,
		byID:  make(map[TimerID]*timer),
		kick:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go td.loop()
	return td
}

// Arm schedules fire to run once after delay. The callback runs on the
// driver goroutine and must only wake or complete, never block.
func (td *Timers) Arm(delay time.Duration, fire func()) TimerID {
	if td == nil || fire == nil {
		return 0
	}
	td.mu.Lock()
	td.nextID++
	id := td.nextID
	t := &timer{
		id:         id,
		deadlineMs: td.clock.NowMs() + durationToMs(delay),
		fire:       fire,
	}
	td.byID[id] = t
	heap.Push(&td.heap, t)
	td.mu.Unlock()
	td.poke()
	return id
}

// ArmWaker schedules a task wake after delay.
func (td *Timers) ArmWaker(delay time.Duration, w Waker) TimerID {
	return td.Arm(delay, w.Wake)
}

// Cancel marks a timer as cancelled; it will never fire. Cancelling an
// already-fired or unknown timer is a no-op.
func (td *Timers) Cancel(id TimerID) {
	if td == nil || id == 0 {
		return
	}
	td.mu.Lock()
	if t := td.byID[id]; t != nil {
		t.cancelled = true
		delete(td.byID, id)
	}
	td.mu.Unlock()
}

// Active reports whether a timer is still pending.
func (td *Timers) Active(id TimerID) bool {
	if td == nil || id == 0 {
		return false
	}
	td.mu.Lock()
	defer td.mu.Unlock()
	t := td.byID[id]
	return t != nil && !t.cancelled
}

// Stop terminates the driver. Pending timers never fire.
func (td *Timers) Stop() {
	if td == nil {
		return
	}
	select {
	case <-td.quit:
		return
	default:
	}
	close(td.quit)
	<-td.done
}

func (td *Timers) poke() {
	select {
	case td.kick <- struct{}{}:
	default:
	}
}

func (td *Timers) loop() {
	defer close(td.done)
	for {
		fires, wait := td.collectDue()
		for _, fire := range fires {
			td.stats.Timeouts.Add(1)
			fire()
		}
		if wait < 0 {
			select {
			case <-td.kick:
			case <-td.quit:
				return
			}
			continue
		}
		sleep := time.NewTimer(wait)
		select {
		case <-sleep.C:
		case <-td.kick:
			sleep.Stop()
		case <-td.quit:
			sleep.Stop()
			return
		}
	}
}

// collectDue pops every expired timer and returns their callbacks plus the
// wait until the next deadline (negative when the heap is empty).
func (td *Timers) collectDue() ([]func(), time.Duration) {
	td.mu.Lock()
	defer td.mu.Unlock()
	now := td.clock.NowMs()
	var fires []func()
	for len(td.heap) > 0 {
		next := td.heap[0]
		if next == nil || next.cancelled {
			heap.Pop(&td.heap)
			continue
		}
		if next.deadlineMs > now {
			deltaMs := next.deadlineMs - now
			maxMs := uint64(math.MaxInt64 / int64(time.Millisecond))
			if deltaMs > maxMs {
				deltaMs = maxMs
			}
			delta, err := safecast.Conv[int64](deltaMs)
			if err != nil {
				delta = int64(maxMs)
			}
			return fires, time.Duration(delta) * time.Millisecond
		}
		heap.Pop(&td.heap)
		next.cancelled = true
		delete(td.byID, next.id)
		fires = append(fires, next.fire)
	}
	return fires, -1
}
