package rt

import (
	"errors"
	"fmt"

	"strand/internal/chanio"
	"strand/internal/future"
	"strand/internal/netpoll"
	"strand/internal/sched"
)

// ReadFuture resolves with the size of the next chunk read from an inbound
// channel into buf. When the endpoint has no data, the backing task
// registers for readiness and parks; it retries on the wake, reading until
// the endpoint would block again, which keeps the edge-triggered contract.
// End of stream fails the future with io.EOF; buf must stay untouched until
// the future is ready. The registration is dropped on any terminal outcome,
// cancellation included, so keep at most one in-flight ReadFuture per
// channel.
func (r *Runtime) ReadFuture(id chanio.ID, buf []byte) *future.Future[int] {
	ch := r.chans.Get(id)
	if ch == nil {
		return future.Failed[int](fmt.Errorf("no channel %d", id))
	}
	reg := -1
	body := func(t *sched.Task) sched.Outcome {
		n, err := ch.Read(buf)
		if err != nil && errors.Is(err, chanio.ErrWouldBlock) {
			fd, regErr := r.await(ch, netpoll.Readable, t)
			if regErr != nil {
				return sched.Done(0, regErr)
			}
			reg = fd
			return sched.Parked()
		}
		return sched.Done(n, err)
	}
	return r.spawnIO(body, &reg)
}

// WriteFuture resolves with len(buf) once all of buf reaches an outbound
// channel, parking on readiness whenever the endpoint is full. A record
// split across readiness waits can interleave with other writers; callers
// needing strict record atomicity use Channel.Write, which blocks the
// calling thread instead. As with ReadFuture, keep at most one in-flight
// WriteFuture per channel.
func (r *Runtime) WriteFuture(id chanio.ID, buf []byte) *future.Future[int] {
	ch := r.chans.Get(id)
	if ch == nil {
		return future.Failed[int](fmt.Errorf("no channel %d", id))
	}
	reg := -1
	off := 0
	body := func(t *sched.Task) sched.Outcome {
		for off < len(buf) {
			n, err := ch.TryWrite(buf[off:])
			off += n
			if err == nil {
				continue
			}
			if errors.Is(err, chanio.ErrWouldBlock) {
				fd, regErr := r.await(ch, netpoll.Writable, t)
				if regErr != nil {
					return sched.Done(off, regErr)
				}
				reg = fd
				return sched.Parked()
			}
			return sched.Done(off, err)
		}
		return sched.Done(off, nil)
	}
	return r.spawnIO(body, &reg)
}

// spawnIO spawns an I/O task whose terminal callback first drops whatever
// readiness registration the body left behind, then completes the future.
// The body and the callback run on the same task, so *reg needs no lock.
func (r *Runtime) spawnIO(body sched.PollFn, reg *int) *future.Future[int] {
	p, f := future.NewPromise[int]()
	onDone := func(v any, err error) {
		if fd := *reg; fd >= 0 && r.poller != nil {
			_ = r.poller.Deregister(fd) //nolint:errcheck // shutdown may have closed the poller first
		}
		complete(p)(v, err)
	}
	if _, err := r.sched.Spawn(body, onDone); err != nil {
		return future.Failed[int](err)
	}
	return f
}

// await registers the task's waker for a readiness edge on the channel's
// descriptor and returns that descriptor. Registration after the endpoint
// reported would-block is safe: the poller reports an edge for descriptors
// already ready at registration time.
func (r *Runtime) await(ch *chanio.Channel, interest netpoll.Interest, t *sched.Task) (int, error) {
	if r.poller == nil {
		return -1, fmt.Errorf("async channel i/o: %w", netpoll.ErrUnsupported)
	}
	fd, ok := ch.Fd()
	if !ok {
		return -1, fmt.Errorf("channel %d endpoint has no descriptor", ch.ID())
	}
	if err := r.poller.Register(fd, interest, t.Waker()); err != nil {
		return -1, fmt.Errorf("channel %d readiness: %w", ch.ID(), err)
	}
	return fd, nil
}
