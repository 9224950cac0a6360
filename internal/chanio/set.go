package chanio

import (
	"errors"
	"fmt"
)

// Set is the process-wide channel set: exactly six channels, fixed at
// bootstrap, never reassigned.
type Set struct {
	chans [NumChannels]*Channel
}

// NewSet assembles the set, substituting discard channels for nil slots.
// Every non-nil channel must carry its slot's number.
func NewSet(chans [NumChannels]*Channel) (*Set, error) {
	s := &Set{}
	for i := range chans {
		id := ID(i) //nolint:gosec // i < NumChannels
		c := chans[i]
		if c == nil {
			c = NewDiscard(id)
		}
		if c.id != id {
			return nil, fmt.Errorf("channel %d placed in slot %d", c.id, id)
		}
		s.chans[i] = c
	}
	return s, nil
}

// Get returns the channel with the given number.
func (s *Set) Get(id ID) *Channel {
	if id >= NumChannels {
		return nil
	}
	return s.chans[id]
}

// PrimaryIn returns channel 0.
func (s *Set) PrimaryIn() *Channel { return s.chans[PrimaryIn] }

// PrimaryOut returns channel 1.
func (s *Set) PrimaryOut() *Channel { return s.chans[PrimaryOut] }

// ErrorOut returns channel 2.
func (s *Set) ErrorOut() *Channel { return s.chans[ErrorOut] }

// DebugOut returns channel 3.
func (s *Set) DebugOut() *Channel { return s.chans[DebugOut] }

// BinaryIn returns channel 4.
func (s *Set) BinaryIn() *Channel { return s.chans[BinaryIn] }

// BinaryOut returns channel 5.
func (s *Set) BinaryOut() *Channel { return s.chans[BinaryOut] }

// Close releases every owned endpoint. Inherited process descriptors stay
// open.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.chans {
		if err := c.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
