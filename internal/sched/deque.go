package sched

import "sync/atomic"

// dequeCap bounds each worker's local queue. Overflowing pushes spill to
// the scheduler's shared overflow queue instead of growing the ring.
const dequeCap = 256

const dequeMask = dequeCap - 1

// deque is a bounded Chase-Lev work-stealing deque. The owning worker
// pushes and pops at the bottom (LIFO, cache-local); thieves steal from the
// top (FIFO). Only the owner may call push and pop; steal is safe from any
// goroutine. Go atomics are sequentially consistent, which the algorithm
// relies on.
type deque struct {
	top    atomic.Int64
	bottom atomic.Int64
	buf    [dequeCap]atomic.Pointer[Task]
}

// push adds a task at the bottom. Returns false when the deque is full.
func (d *deque) push(t *Task) bool {
	b := d.bottom.Load()
	top := d.top.Load()
	if b-top >= dequeCap {
		return false
	}
	d.buf[b&dequeMask].Store(t)
	d.bottom.Store(b + 1)
	return true
}

// pop removes the most recently pushed task. Owner only.
func (d *deque) pop() *Task {
	b := d.bottom.Load() - 1
	d.bottom.Store(b)
	top := d.top.Load()
	if top > b {
		// empty: restore
		d.bottom.Store(b + 1)
		return nil
	}
	t := d.buf[b&dequeMask].Load()
	if top == b {
		// last element: race against thieves for it
		if !d.top.CompareAndSwap(top, top+1) {
			t = nil
		}
		d.bottom.Store(b + 1)
	}
	return t
}

// steal removes the oldest task. Safe from any goroutine.
func (d *deque) steal() *Task {
	for {
		top := d.top.Load()
		b := d.bottom.Load()
		if top >= b {
			return nil
		}
		t := d.buf[top&dequeMask].Load()
		if d.top.CompareAndSwap(top, top+1) {
			return t
		}
	}
}

// size returns an approximate element count; exact only when quiescent.
func (d *deque) size() int64 {
	return d.bottom.Load() - d.top.Load()
}
