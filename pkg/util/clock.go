package util

import "time"

type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }

// FixedClock pins Now to a single instant. Tests use it to make order and
// event timestamps deterministic.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (c FixedClock) Now() time.Time                         { return c.T }
