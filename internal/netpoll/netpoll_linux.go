//go:build linux

package netpoll

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"fortio.org/safecast"
	"golang.org/x/sys/unix"
)

type registration struct {
	interest Interest
	read     Waker
	write    Waker
}

// Poller wraps one epoll instance plus an eventfd used to interrupt a
// blocked Wait (new registrations, shutdown).
type Poller struct {
	epfd   int
	wakefd int

	mu     sync.Mutex
	regs   map[int]*registration
	closed bool
}

// New creates the poller.
func New() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd) //nolint:errcheck // constructor failure path
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	p := &Poller{
		epfd:   epfd,
		wakefd: wakefd,
		regs:   make(map[int]*registration),
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)} //nolint:gosec // kernel-allocated fd
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(epfd)   //nolint:errcheck // constructor failure path
		_ = unix.Close(wakefd) //nolint:errcheck // constructor failure path
		return nil, fmt.Errorf("epoll_ctl eventfd: %w", err)
	}
	return p, nil
}

// Register subscribes a waker for readiness edges on fd. Registering the
// same fd again merges interests; the most recent waker per direction
// wins. The registration is edge-triggered — see the package contract.
func (p *Poller) Register(fd int, interest Interest, w Waker) error {
	if fd < 0 || fd > math.MaxInt32 {
		return fmt.Errorf("netpoll: fd %d out of range", fd)
	}
	if w == nil {
		return fmt.Errorf("netpoll: nil waker for fd %d", fd)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	reg := p.regs[fd]
	op := unix.EPOLL_CTL_MOD
	if reg == nil {
		reg = &registration{}
		p.regs[fd] = reg
		op = unix.EPOLL_CTL_ADD
	}
	reg.interest |= interest
	if interest&Readable != 0 {
		reg.read = w
	}
	if interest&Writable != 0 {
		reg.write = w
	}
	var events uint32 = unix.EPOLLET
	if reg.interest&Readable != 0 {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if reg.interest&Writable != 0 {
		events |= unix.EPOLLOUT
	}
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)} //nolint:gosec // bounded above
	if err := unix.EpollCtl(p.epfd, op, fd, &ev); err != nil {
		if op == unix.EPOLL_CTL_ADD {
			delete(p.regs, fd)
		}
		return fmt.Errorf("epoll_ctl fd %d: %w", fd, err)
	}
	return nil
}

// Registered reports whether fd currently holds a registration.
func (p *Poller) Registered(fd int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.regs[fd]
	return ok
}

// Deregister drops all interest in fd, e.g. on cancellation.
func (p *Poller) Deregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if _, ok := p.regs[fd]; !ok {
		return nil
	}
	delete(p.regs, fd)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

// Wait blocks up to maxWait (negative: indefinitely) for readiness and
// invokes each ready descriptor's waker exactly once per edge. Returns the
// number of wakers invoked. Only the I/O driver goroutine may call Wait.
func (p *Poller) Wait(maxWait time.Duration) (int, error) {
	timeout := -1
	if maxWait >= 0 {
		ms := int64(maxWait / time.Millisecond)
		if ms > math.MaxInt32 {
			ms = math.MaxInt32
		}
		t, err := safecast.Conv[int](ms)
		if err != nil {
			t = math.MaxInt32
		}
		timeout = t
	}

	var events [128]unix.EpollEvent
	var n int
	for {
		var err error
		n, err = unix.EpollWait(p.epfd, events[:], timeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("epoll_wait: %w", err)
		}
		break
	}

	var wakers []Waker
	p.mu.Lock()
	closed := p.closed
	for i := 0; i < n; i++ {
		ev := &events[i]
		fd := int(ev.Fd)
		if fd == p.wakefd {
			p.drainWakeLocked()
			continue
		}
		reg := p.regs[fd]
		if reg == nil {
			continue
		}
		if ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0 && reg.read != nil {
			wakers = append(wakers, reg.read)
		}
		if ev.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0 && reg.write != nil {
			wakers = append(wakers, reg.write)
		}
	}
	p.mu.Unlock()

	for _, w := range wakers {
		w.Wake()
	}
	if closed {
		return len(wakers), ErrClosed
	}
	return len(wakers), nil
}

func (p *Poller) drainWakeLocked() {
	var buf [8]byte
	for {
		_, err := unix.Read(p.wakefd, buf[:])
		if err != nil {
			return
		}
	}
}

// Wakeup interrupts a blocked Wait.
func (p *Poller) Wakeup() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(p.wakefd, buf[:]) //nolint:errcheck // best effort; a full eventfd already wakes
}

// Close marks the poller closed and interrupts Wait. The driver loop must
// call Release once Wait has returned ErrClosed.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.Wakeup()
}

// Release frees the kernel resources. Call only after Wait has observed
// the close.
func (p *Poller) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epfd >= 0 {
		_ = unix.Close(p.epfd) //nolint:errcheck // teardown
		p.epfd = -1
	}
	if p.wakefd >= 0 {
		_ = unix.Close(p.wakefd) //nolint:errcheck // teardown
		p.wakefd = -1
	}
}
