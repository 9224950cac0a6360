//go:build linux

package netpoll_test

import (
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"strand/internal/netpoll"
)

func newPoller(t *testing.T) *netpoll.Poller {
	t.Helper()
	p, err := netpoll.New()
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	return p
}

func TestWaitReportsReadable(t *testing.T) {
	p := newPoller(t)
	defer func() {
		p.Close()
		p.Release()
	}()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	var woken atomic.Int32
	if err := p.Register(int(r.Fd()), netpoll.Readable, netpoll.WakeFunc(func() {
		woken.Add(1)
	})); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := w.WriteString("x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err := p.Wait(2 * time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if n < 1 || woken.Load() < 1 {
		t.Fatalf("wait = %d wakes, waker fired %d times", n, woken.Load())
	}
}

func TestRegisterAfterReadyStillWakes(t *testing.T) {
	// Data already buffered at registration time must produce an edge, or
	// the read-then-register pattern would lose wakeups.
	p := newPoller(t)
	defer func() {
		p.Close()
		p.Release()
	}()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	if _, err := w.WriteString("early"); err != nil {
		t.Fatalf("write: %v", err)
	}
	var woken atomic.Int32
	if err := p.Register(int(r.Fd()), netpoll.Readable, netpoll.WakeFunc(func() {
		woken.Add(1)
	})); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := p.Wait(2 * time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if woken.Load() < 1 {
		t.Fatal("pre-buffered data produced no wake")
	}
}

func TestDeregisterStopsWakes(t *testing.T) {
	p := newPoller(t)
	defer func() {
		p.Close()
		p.Release()
	}()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	var woken atomic.Int32
	fd := int(r.Fd())
	if err := p.Register(fd, netpoll.Readable, netpoll.WakeFunc(func() { woken.Add(1) })); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := p.Deregister(fd); err != nil {
		t.Fatalf("deregister: %v", err)
	}
	if _, err := w.WriteString("x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err := p.Wait(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if n != 0 || woken.Load() != 0 {
		t.Fatalf("deregistered fd still woke: n=%d fires=%d", n, woken.Load())
	}
	// Deregistering again is a no-op.
	if err := p.Deregister(fd); err != nil {
		t.Fatalf("second deregister: %v", err)
	}
}

func TestWakeupInterruptsWait(t *testing.T) {
	p := newPoller(t)
	defer func() {
		p.Close()
		p.Release()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := p.Wait(-1)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	p.Wakeup()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait after wakeup: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wakeup did not interrupt wait")
	}
}

func TestCloseEndsDriverLoop(t *testing.T) {
	p := newPoller(t)
	done := make(chan error, 1)
	go func() {
		for {
			_, err := p.Wait(-1)
			if err != nil {
				done <- err
				return
			}
		}
	}()
	time.Sleep(20 * time.Millisecond)
	p.Close()
	select {
	case err := <-done:
		if !errors.Is(err, netpoll.ErrClosed) {
			t.Fatalf("driver loop ended with %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("close did not end the driver loop")
	}
	p.Release()

	if err := p.Register(0, netpoll.Readable, netpoll.WakeFunc(func() {})); !errors.Is(err, netpoll.ErrClosed) {
		t.Fatalf("register on closed poller = %v, want ErrClosed", err)
	}
}
