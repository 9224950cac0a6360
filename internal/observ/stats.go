// Package observ collects runtime counters and serializes them into
// report files for offline inspection.
package observ

import "sync/atomic"

// Stats aggregates scheduler counters. All fields are updated with atomics
// from worker goroutines; reads may be slightly torn across fields, which is
// acceptable for observability.
type Stats struct {
	Spawned   atomic.Uint64
	Completed atomic.Uint64
	Cancelled atomic.Uint64
	Rejected  atomic.Uint64 // spawns refused after drain began

	Polls    atomic.Uint64
	Yields   atomic.Uint64
	Parks    atomic.Uint64
	Wakes    atomic.Uint64
	Timeouts atomic.Uint64 // timers fired

	Steals        atomic.Uint64
	OverflowPush  atomic.Uint64
	OverflowPop   atomic.Uint64
	WorkerParks   atomic.Uint64
	WorkerUnparks atomic.Uint64
}

// NewStats returns an empty counter set.
func NewStats() *Stats { return &Stats{} }

// Snapshot copies the counters into a serializable report.
func (s *Stats) Snapshot(workers int) Report {
	if s == nil {
		return Report{Schema: reportSchemaVersion}
	}
	return Report{
		Schema:        reportSchemaVersion,
		Workers:       workers,
		Spawned:       s.Spawned.Load(),
		Completed:     s.Completed.Load(),
		Cancelled:     s.Cancelled.Load(),
		Rejected:      s.Rejected.Load(),
		Polls:         s.Polls.Load(),
		Yields:        s.Yields.Load(),
		Parks:         s.Parks.Load(),
		Wakes:         s.Wakes.Load(),
		Timeouts:      s.Timeouts.Load(),
		Steals:        s.Steals.Load(),
		OverflowPush:  s.OverflowPush.Load(),
		OverflowPop:   s.OverflowPop.Load(),
		WorkerParks:   s.WorkerParks.Load(),
		WorkerUnparks: s.WorkerUnparks.Load(),
	}
}
