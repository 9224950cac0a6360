package sched

import (
	"sync/atomic"
	"time"

	"fortio.org/safecast"
)

// Clock supplies monotonic time for the timer driver.
type Clock interface {
	NowMs() uint64
}

// RealClock reports milliseconds since its creation, monotonically.
type RealClock struct {
	base time.Time
}

// NewRealClock returns a clock rooted at the current instant.
func NewRealClock() *RealClock { return &RealClock{base: time.Now()} }

func (c *RealClock) NowMs() uint64 {
	if c == nil {
		return 0
	}
	ms := time.Since(c.base) / time.Millisecond
	u, err := safecast.Conv[uint64](int64(ms))
	if err != nil {
		return 0
	}
	return u
}

// VirtualClock is a manually advanced clock for deterministic tests. Time
// only moves when Advance is called; arming a timer after an Advance makes
// the driver re-collect anything now due.
type VirtualClock struct {
	ms atomic.Uint64
}

// NewVirtualClock returns a clock stopped at zero.
func NewVirtualClock() *VirtualClock { return &VirtualClock{} }

func (c *VirtualClock) NowMs() uint64 { return c.ms.Load() }

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	c.ms.Add(durationToMs(d))
}

// durationToMs converts a delay to whole milliseconds, clamping negatives
// to zero and rounding sub-millisecond delays up so they still fire.
func durationToMs(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	u, err := safecast.Conv[uint64](int64(ms))
	if err != nil {
		return ^uint64(0) >> 1
	}
	return u
}
