package sched_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"strand/internal/sched"
	"strand/internal/testkit"
)

func TestTimerFires(t *testing.T) {
	td := sched.NewTimers(nil, nil)
	defer td.Stop()

	fired := make(chan struct{})
	id := td.Arm(10*time.Millisecond, func() { close(fired) })
	if id == 0 {
		t.Fatal("Arm returned zero id")
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timer never fired")
	}
	if td.Active(id) {
		t.Fatal("fired timer still active")
	}
}

func TestTimerCancel(t *testing.T) {
	td := sched.NewTimers(nil, nil)
	defer td.Stop()

	var fired atomic.Bool
	id := td.Arm(30*time.Millisecond, func() { fired.Store(true) })
	td.Cancel(id)
	if td.Active(id) {
		t.Fatal("cancelled timer reported active")
	}
	time.Sleep(100 * time.Millisecond)
	if fired.Load() {
		t.Fatal("cancelled timer fired")
	}
	// Cancelling again, or cancelling the zero id, is a no-op.
	td.Cancel(id)
	td.Cancel(0)
}

func TestTimerDeadlineOrder(t *testing.T) {
	vc := sched.NewVirtualClock()
	td := sched.NewTimers(vc, nil)
	defer td.Stop()

	var mu sync.Mutex
	var order []string
	note := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	td.Arm(20*time.Millisecond, note("b"))
	td.Arm(10*time.Millisecond, note("a"))

	// Frozen clock: nothing is due yet.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	n := len(order)
	mu.Unlock()
	if n != 0 {
		t.Fatalf("%d timers fired with the clock frozen", n)
	}

	vc.Advance(25 * time.Millisecond)
	// Arming nudges the driver into re-collecting due timers.
	td.Arm(time.Hour, func() {})

	if !testkit.Eventually(5*time.Second, time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}) {
		t.Fatal("due timers never fired after clock advance")
	}
	mu.Lock()
	defer mu.Unlock()
	if order[0] != "a" || order[1] != "b" {
		t.Fatalf("fire order = %v, want [a b]", order)
	}
}

func TestTimerWakesTask(t *testing.T) {
	s := sched.New(sched.Config{Workers: 1, Seed: 1})
	defer s.Shutdown()
	td := sched.NewTimers(nil, nil)
	defer td.Stop()

	var polls atomic.Int32
	errCh := make(chan error, 1)
	_, err := s.Spawn(func(t *sched.Task) sched.Outcome {
		if polls.Add(1) == 1 {
			td.ArmWaker(10*time.Millisecond, t.Waker())
			return sched.Parked()
		}
		return sched.Done(nil, nil)
	}, func(_ any, err error) { errCh <- err })
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("task failed: %v", err)
	}
	if got := polls.Load(); got != 2 {
		t.Fatalf("body polled %d times, want 2", got)
	}
}

func TestVirtualClockAdvance(t *testing.T) {
	vc := sched.NewVirtualClock()
	if got := vc.NowMs(); got != 0 {
		t.Fatalf("fresh virtual clock at %dms, want 0", got)
	}
	vc.Advance(1500 * time.Microsecond) // rounds up to whole ms
	if got := vc.NowMs(); got != 2 {
		t.Fatalf("NowMs = %d, want 2", got)
	}
}
