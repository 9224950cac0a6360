package trace

import (
	"fmt"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpawn marks a task entering the scheduler.
	KindSpawn Kind = iota + 1
	// KindDone marks a task reaching a terminal state.
	KindDone
	// KindWake marks a suspended task being re-enqueued.
	KindWake
	// KindPark marks a task suspending on a pending future.
	KindPark
	// KindYield marks a voluntary yield.
	KindYield
	// KindSteal marks a successful steal from a peer deque.
	KindSteal
	// KindWorkerPark marks a worker going idle.
	KindWorkerPark
	// KindShutdown marks a scheduler lifecycle transition.
	KindShutdown
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpawn:
		return "spawn"
	case KindDone:
		return "done"
	case KindWake:
		return "wake"
	case KindPark:
		return "park"
	case KindYield:
		return "yield"
	case KindSteal:
		return "steal"
	case KindWorkerPark:
		return "worker-park"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event is a single trace record.
type Event struct {
	Time   time.Time
	Kind   Kind
	Task   uint64 // task ID, 0 when not task-scoped
	Worker int    // worker index, -1 when not worker-scoped
	Detail string
}

// Format renders the event as a single text line.
func (ev *Event) Format() string {
	if ev == nil {
		return ""
	}
	line := fmt.Sprintf("%s %-11s", ev.Time.Format("15:04:05.000000"), ev.Kind)
	if ev.Worker >= 0 {
		line += fmt.Sprintf(" w%d", ev.Worker)
	}
	if ev.Task != 0 {
		line += fmt.Sprintf(" task=%d", ev.Task)
	}
	if ev.Detail != "" {
		line += " " + ev.Detail
	}
	return line
}
