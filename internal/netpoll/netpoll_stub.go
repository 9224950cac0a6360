//go:build !linux

package netpoll

import "time"

// New reports that readiness polling is unavailable here. Callers fall
// back to running without async channel I/O.
func New() (*Poller, error) {
	return nil, ErrUnsupported
}

// Poller is a placeholder on platforms without a readiness backend; New
// never returns one.
type Poller struct{}

func (p *Poller) Register(fd int, interest Interest, w Waker) error { return ErrUnsupported }
func (p *Poller) Registered(fd int) bool                            { return false }
func (p *Poller) Deregister(fd int) error                           { return ErrUnsupported }
func (p *Poller) Wait(maxWait time.Duration) (int, error)           { return 0, ErrUnsupported }
func (p *Poller) Wakeup()                                           {}
func (p *Poller) Close()                                            {}
func (p *Poller) Release()                                          {}
