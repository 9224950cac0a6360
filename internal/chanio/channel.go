package chanio

import (
	"errors"
	"io"
	"sync"
)

// Channel is one of the six fixed process channels. Reads and writes
// return errors as ordinary values; nothing here retries.
type Channel struct {
	id      ID
	dir     Direction
	enc     Encoding
	name    string
	ep      Endpoint
	discard bool
	owned   bool // close the endpoint on Set.Close

	// wmu serializes writers so a single write's bytes never interleave
	// with another writer's. Relative order across writers stays
	// unspecified.
	wmu sync.Mutex

	closed bool
	cmu    sync.Mutex
}

// New builds a channel over ep with the direction and encoding fixed by
// its number. owned endpoints are closed by Set.Close; inherited process
// descriptors should not be owned.
func New(id ID, ep Endpoint, owned bool) *Channel {
	dir, enc, name := Spec(id)
	return &Channel{id: id, dir: dir, enc: enc, name: name, ep: ep, owned: owned}
}

// NewDiscard builds the substitute channel for a number the parent left
// unwired.
func NewDiscard(id ID) *Channel {
	c := New(id, Discard(), false)
	c.discard = true
	return c
}

// ID returns the channel number.
func (c *Channel) ID() ID { return c.id }

// Direction returns the fixed direction.
func (c *Channel) Direction() Direction { return c.dir }

// Encoding returns the fixed encoding.
func (c *Channel) Encoding() Encoding { return c.enc }

// Name returns the conventional channel name.
func (c *Channel) Name() string { return c.name }

// Discarded reports whether this channel is a discard substitute.
func (c *Channel) Discarded() bool { return c.discard }

// Fd exposes the endpoint's descriptor for readiness registration.
func (c *Channel) Fd() (int, bool) { return c.ep.Fd() }

// Read fills buf from an inbound channel. A non-blocking endpoint with no
// data pending returns ErrWouldBlock (wrapped); end of stream is io.EOF.
func (c *Channel) Read(buf []byte) (int, error) {
	if c.dir != DirIn {
		return 0, &IOError{Channel: c.id, Op: "read", Err: ErrDirection}
	}
	if c.isClosed() {
		return 0, &IOError{Channel: c.id, Op: "read", Err: ErrClosed}
	}
	n, err := c.ep.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &IOError{Channel: c.id, Op: "read", Err: err}
	}
	return n, err
}

// Write sends all of buf to an outbound channel. The write lock plus the
// internal short-write loop guarantee the bytes land contiguously even
// with concurrent writers. On a non-blocking endpoint this may block the
// calling thread waiting for buffer space; use TryWrite with the readiness
// poller to avoid that.
func (c *Channel) Write(buf []byte) (int, error) {
	if c.dir != DirOut {
		return 0, &IOError{Channel: c.id, Op: "write", Err: ErrDirection}
	}
	if c.isClosed() {
		return 0, &IOError{Channel: c.id, Op: "write", Err: ErrClosed}
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	total := 0
	for total < len(buf) {
		n, err := c.ep.Write(buf[total:])
		total += n
		if err == nil {
			continue
		}
		if errors.Is(err, ErrWouldBlock) {
			if ww, ok := c.ep.(writeWaiter); ok {
				if werr := ww.WaitWritable(); werr == nil {
					continue
				}
			}
		}
		return total, &IOError{Channel: c.id, Op: "write", Err: err}
	}
	return total, nil
}

// TryWrite attempts a single non-blocking write under the channel write
// lock, returning ErrWouldBlock (wrapped) when the endpoint is full.
// Callers pairing it with the poller must hold off on concurrent Write
// calls for the same logical record or interleaving protection is lost.
func (c *Channel) TryWrite(buf []byte) (int, error) {
	if c.dir != DirOut {
		return 0, &IOError{Channel: c.id, Op: "write", Err: ErrDirection}
	}
	if c.isClosed() {
		return 0, &IOError{Channel: c.id, Op: "write", Err: ErrClosed}
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	n, err := c.ep.Write(buf)
	if err != nil {
		return n, &IOError{Channel: c.id, Op: "write", Err: err}
	}
	return n, nil
}

func (c *Channel) isClosed() bool {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	return c.closed
}

func (c *Channel) close() error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.owned {
		return c.ep.Close()
	}
	return nil
}
