//go:build unix

package chanio

import (
	"io"

	"golang.org/x/sys/unix"
)

// FdEndpoint is a raw non-blocking descriptor endpoint. Reads and writes
// surface ErrWouldBlock instead of blocking, so the readiness poller can
// drive retries.
type FdEndpoint struct {
	fd int
}

// NewFdEndpoint wraps an already-open descriptor. The caller is expected
// to have set O_NONBLOCK when readiness-driven I/O is wanted.
func NewFdEndpoint(fd int) *FdEndpoint { return &FdEndpoint{fd: fd} }

func (e *FdEndpoint) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(e.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return 0, ErrWouldBlock
		}
		if err != nil {
			return 0, err
		}
		if n == 0 && len(p) > 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

func (e *FdEndpoint) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(e.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			if n < 0 {
				n = 0
			}
			return n, ErrWouldBlock
		}
		if err != nil {
			if n < 0 {
				n = 0
			}
			return n, err
		}
		return n, nil
	}
}

func (e *FdEndpoint) Close() error { return unix.Close(e.fd) }

func (e *FdEndpoint) Fd() (int, bool) { return e.fd, true }

// WaitWritable blocks the calling thread until the descriptor accepts
// bytes again. Used by Channel.Write to keep one logical write atomic.
func (e *FdEndpoint) WaitWritable() error {
	maxFD := int(^uint32(0) >> 1)
	if e.fd < 0 || e.fd > maxFD {
		return unix.EBADF
	}
	pfds := []unix.PollFd{{Fd: int32(e.fd), Events: unix.POLLOUT}} //nolint:gosec // bounded above
	for {
		_, err := unix.Poll(pfds, -1)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
