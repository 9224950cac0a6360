// Package netpoll bridges OS readiness notification to scheduler wakeups.
// One dedicated I/O driver goroutine blocks in Wait; workers never call
// the OS multiplexer themselves.
//
// Readiness is edge-triggered: a waker fires once per edge, and the
// resumed task must drain the descriptor until it would block before
// re-registering, or subsequent notifications are lost. That is a
// correctness contract, not an optimization.
package netpoll

import "errors"

// Interest selects which readiness edges a registration wants.
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
)

// Waker is invoked on a readiness edge. Implementations must be safe to
// call from the driver goroutine and must not block.
type Waker interface {
	Wake()
}

// WakeFunc adapts a function to Waker.
type WakeFunc func()

func (f WakeFunc) Wake() { f() }

// ErrUnsupported reports that this platform has no readiness poller; the
// runtime then runs without async channel I/O.
var ErrUnsupported = errors.New("netpoll: not supported on this platform")

// ErrClosed reports use of a closed poller.
var ErrClosed = errors.New("netpoll: poller closed")
