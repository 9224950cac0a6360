// Package chanio implements the six fixed process channels: directional,
// typed I/O endpoints numbered 0-5, created once at bootstrap and never
// reassigned for the life of the process.
package chanio

import (
	"errors"
	"fmt"
)

// ID numbers a channel. The numbering and direction are fixed for the
// process lifetime.
type ID uint8

const (
	// PrimaryIn is channel 0: primary text input.
	PrimaryIn ID = iota
	// PrimaryOut is channel 1: primary text output.
	PrimaryOut
	// ErrorOut is channel 2: text error output.
	ErrorOut
	// DebugOut is channel 3: text diagnostics/debug output.
	DebugOut
	// BinaryIn is channel 4: binary input.
	BinaryIn
	// BinaryOut is channel 5: binary output.
	BinaryOut

	// NumChannels is the size of the fixed channel set.
	NumChannels = 6
)

// Direction marks a channel as readable or writable, never both.
type Direction uint8

const (
	DirIn Direction = iota
	DirOut
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	if d == DirIn {
		return "in"
	}
	return "out"
}

// Encoding distinguishes the four text channels from the two binary ones.
// The runtime treats bytes as opaque either way; encoding is contract
// metadata for producers and consumers.
type Encoding uint8

const (
	Text Encoding = iota
	Binary
)

// String returns the string representation of Encoding.
func (e Encoding) String() string {
	if e == Text {
		return "text"
	}
	return "binary"
}

// channelSpec fixes direction, encoding and name per channel number.
var channelSpec = [NumChannels]struct {
	dir  Direction
	enc  Encoding
	name string
}{
	{DirIn, Text, "primary-in"},
	{DirOut, Text, "primary-out"},
	{DirOut, Text, "error-out"},
	{DirOut, Text, "debug-out"},
	{DirIn, Binary, "binary-in"},
	{DirOut, Binary, "binary-out"},
}

// Spec returns the fixed direction, encoding and name for a channel number.
func Spec(id ID) (Direction, Encoding, string) {
	s := channelSpec[id]
	return s.dir, s.enc, s.name
}

var (
	// ErrWouldBlock reports that a non-blocking endpoint has no data
	// (read) or no buffer space (write) right now. Recoverable: retry
	// after a readiness wake, draining fully before re-registering.
	ErrWouldBlock = errors.New("operation would block")

	// ErrDirection reports a read on an outbound channel or a write on an
	// inbound one.
	ErrDirection = errors.New("wrong channel direction")

	// ErrClosed reports an operation on a closed channel.
	ErrClosed = errors.New("channel closed")
)

// IOError wraps a channel I/O failure with its channel and operation. It
// flows through future chains as an ordinary value; the runtime never
// retries on the caller's behalf.
type IOError struct {
	Channel ID
	Op      string
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("channel %d %s: %v", e.Channel, e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
