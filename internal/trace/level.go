package trace

import (
	"fmt"
	"strings"
)

// Level controls how much the runtime traces.
type Level uint8

const (
	// LevelOff disables tracing entirely.
	LevelOff Level = iota
	// LevelSched traces task lifecycle events (spawn, done, cancel).
	LevelSched
	// LevelVerbose additionally traces wakes, steals and worker parking.
	LevelVerbose
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelSched:
		return "sched"
	case LevelVerbose:
		return "verbose"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "", "off":
		return LevelOff, nil
	case "sched":
		return LevelSched, nil
	case "verbose":
		return LevelVerbose, nil
	default:
		return LevelOff, fmt.Errorf("unknown trace level %q", s)
	}
}
