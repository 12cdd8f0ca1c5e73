package app

import "time"

// Clock returns the current time. Tests substitute a fixed sequence.
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}
