package app

import "sync/atomic"

// TickClock hands out tick numbers.
type TickClock interface {
	Next() int64
	Current() int64
}

// Clock is the monotonic tick counter.
//
// Every Update stamps its work with the next tick number, so traces and
// handler logs can be correlated without wall-clock time.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock at tick 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Next advances the clock and returns the new tick.
func (c *Clock) Next() int64 {
	return c.tick.Add(1)
}

// Current returns the last tick handed out.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
