package trace

import "sync"

// RingTracer keeps the last N events in memory. It is intended for
// post-mortem inspection: cheap to emit into, dumped on demand.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	full  bool
	level Level
}

// NewRingTracer allocates a ring holding up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingTracer{
		buf:   make([]Event, capacity),
		level: level,
	}
}

func (t *RingTracer) Emit(ev *Event) {
	if t == nil || ev == nil || t.level == LevelOff {
		return
	}
	t.mu.Lock()
	t.buf[t.next] = *ev
	t.next++
	if t.next == len(t.buf) {
		t.next = 0
		t.full = true
	}
	t.mu.Unlock()
}

// Snapshot returns the buffered events in arrival order.
func (t *RingTracer) Snapshot() []Event {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		out := make([]Event, t.next)
		copy(out, t.buf[:t.next])
		return out
	}
	out := make([]Event, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	out = append(out, t.buf[:t.next]...)
	return out
}

func (t *RingTracer) Flush() error { return nil }
func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level {
	if t == nil {
		return LevelOff
	}
	return t.level
}

func (t *RingTracer) Enabled() bool { return t.Level() > LevelOff }
