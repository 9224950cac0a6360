// Package bootstrap establishes the six process channels before any task
// runs. It succeeds or it is fatal: the process cannot run without its
// channel set, and bootstrap is never retried.
//
// Two host conventions are supported, selected at build time:
//   - hosts with native inheritance of low-numbered descriptors verify
//     descriptors 0-5 directly (posix.go);
//   - hosts without it read a manifest the parent wrote at spawn time, one
//     environment variable per channel (manifest.go).
//
// Either way, channels the parent did not wire become discard endpoints; a
// legacy parent wiring only 0-2 must not break bootstrap.
package bootstrap

import (
	"fmt"
	"os"

	"strand/internal/chanio"
)

// ManifestPrefix is the environment prefix of the handle manifest:
// ManifestPrefix+"0" .. ManifestPrefix+"5" carry native handle values.
const ManifestPrefix = "STRAND_CH"

// Error is a fatal bootstrap failure. It is reported before user code
// executes and never retried.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("channel bootstrap: %s: %v", e.Reason, e.Err)
	}
	return "channel bootstrap: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// ManifestKey returns the environment variable name for a channel number.
func ManifestKey(id chanio.ID) string {
	return fmt.Sprintf("%s%d", ManifestPrefix, id)
}

// ManifestPresent reports whether the parent supplied a handle manifest.
func ManifestPresent(getenv func(string) string) bool {
	for id := chanio.ID(0); id < chanio.NumChannels; id++ {
		if getenv(ManifestKey(id)) != "" {
			return true
		}
	}
	return false
}

// Establish builds the process channel set. A manifest, when present,
// takes precedence over host descriptor inheritance so that manifest
// spawns work on every host.
func Establish() (*chanio.Set, error) {
	if ManifestPresent(os.Getenv) {
		return EstablishManifest(os.Getenv)
	}
	return establishPlatform()
}
