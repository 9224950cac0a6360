// Package testkit holds shared test helpers: runtime invariant checks and
// small synchronization utilities used across package tests.
package testkit

import (
	"fmt"
	"time"

	"strand/internal/observ"
	"strand/internal/sched"
)

// CheckReport validates counter consistency for a fully drained scheduler.
// Call only after Shutdown returned; mid-run the counters are legitimately
// torn.
func CheckReport(rep observ.Report) error {
	if got, want := rep.Completed+rep.Cancelled, rep.Spawned; got != want {
		return fmt.Errorf("terminal tasks %d, spawned %d", got, want)
	}
	if rep.Polls < rep.Completed {
		return fmt.Errorf("polls %d < completed %d; a task finished without running", rep.Polls, rep.Completed)
	}
	if rep.OverflowPop > rep.OverflowPush {
		return fmt.Errorf("overflow pops %d > pushes %d", rep.OverflowPop, rep.OverflowPush)
	}
	if rep.Yields > rep.Polls {
		return fmt.Errorf("yields %d > polls %d", rep.Yields, rep.Polls)
	}
	if rep.Parks > rep.Polls {
		return fmt.Errorf("parks %d > polls %d", rep.Parks, rep.Polls)
	}
	return nil
}

// CheckDrained verifies a scheduler holds no live tasks.
func CheckDrained(s *sched.Scheduler) error {
	if n := s.Live(); n != 0 {
		return fmt.Errorf("%d tasks still live after drain", n)
	}
	return nil
}

// Eventually polls cond every tick until it holds or the deadline passes.
func Eventually(deadline, tick time.Duration, cond func() bool) bool {
	end := time.Now().Add(deadline)
	for {
		if cond() {
			return true
		}
		if time.Now().After(end) {
			return false
		}
		time.Sleep(tick)
	}
}
