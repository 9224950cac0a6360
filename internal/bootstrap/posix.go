//go:build unix

package bootstrap

import (
	"golang.org/x/sys/unix"

	"strand/internal/chanio"
)

// establishPlatform verifies descriptors 0-5 inherited from the parent and
// wraps each open one; any the parent did not supply becomes a discard
// endpoint. Pipe, FIFO and socket descriptors are switched to non-blocking
// so the readiness poller can drive them; terminals and regular files keep
// blocking semantics.
func establishPlatform() (*chanio.Set, error) {
	var chans [chanio.NumChannels]*chanio.Channel
	for i := 0; i < chanio.NumChannels; i++ {
		id := chanio.ID(i) //nolint:gosec // i < NumChannels
		if _, err := unix.FcntlInt(uintptr(i), unix.F_GETFL, 0); err != nil {
			chans[i] = chanio.NewDiscard(id)
			continue
		}
		if pollable(i) {
			// Best effort: a parent may have handed us a descriptor
			// that rejects O_NONBLOCK; blocking I/O still works.
			_ = unix.SetNonblock(i, true) //nolint:errcheck
		}
		chans[i] = chanio.New(id, chanio.NewFdEndpoint(i), false)
	}
	set, err := chanio.NewSet(chans)
	if err != nil {
		return nil, &Error{Reason: "assembling channel set", Err: err}
	}
	return set, nil
}

// pollable reports whether the descriptor benefits from readiness-driven
// non-blocking I/O.
func pollable(fd int) bool {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return false
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFIFO, unix.S_IFSOCK:
		return true
	default:
		return false
	}
}
